package main

import (
	"context"
	"log"

	"pv-analysis-be/internal/bootstrap"
	"pv-analysis-be/internal/config"
	"pv-analysis-be/internal/server"
	"pv-analysis-be/internal/tracer"
	"pv-analysis-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	ctx := context.Background()

	// 4. Start Background Services
	log.Println("Background: Starting Persister...")
	if err := container.Persister.Start(ctx); err != nil {
		log.Panicf("Unable to start persister: %v", err)
	}

	// 5. Restore session-scoped state, then start the coordinator loop
	container.Store.Hydrate(ctx)
	go container.Store.Run(ctx, container.Transport.Inbox())

	// 6. Initialize Server
	srv := server.New(cfg, container)

	// 7. Run Server
	log.Fatal(srv.Run())
}
