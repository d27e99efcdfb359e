package bootstrap

import (
	"context"
	"log"
	"time"

	"pv-analysis-be/internal/config"
	"pv-analysis-be/internal/controller"
	"pv-analysis-be/internal/orchestrator"
	"pv-analysis-be/internal/pkg/logger"
	"pv-analysis-be/internal/repository/contract"
	"pv-analysis-be/internal/repository/memory"
	"pv-analysis-be/internal/repository/unitofwork"
	"pv-analysis-be/internal/service"
	"pv-analysis-be/internal/state"
	"pv-analysis-be/internal/transport"
	"pv-analysis-be/pkg/dataclient"
	"pv-analysis-be/pkg/lifecycle"
	pkgSticky "pv-analysis-be/pkg/sticky"

	pktNats "pv-analysis-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ProjectController controller.IProjectController

	// Coordination core
	Transport        *transport.Transport
	TransportHandler *transport.Handler
	Store            *state.Store
	Persister        *orchestrator.Persister

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis-backed sticky storage, with an in-memory fallback so the shell
	// still runs (without reload durability) when Redis is down.
	var sticky contract.StickyRepository
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis, sticky state is in-memory only: %v", err)
		sticky = memory.NewStickyRepository()
	} else {
		sticky = pkgSticky.NewRedisStore(rdb)
	}

	// Data-analysis service client
	dataClient := dataclient.New(
		cfg.Services.DataAnalysisURL,
		time.Duration(cfg.Services.RequestTimeoutSec)*time.Second,
	)

	// 3. Coordination core
	transportLogger := logger.NewIsolatedLogger("logs/transport.log")
	moduleTransport := transport.NewTransport(cfg.Modules.Origins, transportLogger)
	go moduleTransport.Run()

	var busPublisher lifecycle.Publisher
	if natsPub != nil {
		busPublisher = natsPub
	}
	emitter := lifecycle.NewEmitter(busPublisher, sysLogger)

	store := state.NewStore(moduleTransport, sticky, dataClient, emitter, sysLogger)

	projectOrchestrator := orchestrator.NewOrchestrator(
		store,
		moduleTransport,
		sticky,
		dataClient,
		uowFactory,
		pubSub,
		orchestrator.PersistTopic,
		emitter,
		sysLogger,
	)
	store.AttachCoordinator(projectOrchestrator)

	persister := orchestrator.NewPersister(pubSub, orchestrator.PersistTopic, uowFactory, sysLogger)

	// 4. REST surface
	projectService := service.NewProjectService(uowFactory)

	return &Container{
		ProjectController: controller.NewProjectController(projectService),

		Transport:        moduleTransport,
		TransportHandler: transport.NewHandler(moduleTransport, cfg.Modules.Origins, transportLogger),
		Store:            store,
		Persister:        persister,

		Logger: sysLogger,
	}
}
