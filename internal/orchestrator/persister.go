package orchestrator

import (
	"context"
	"encoding/json"

	wmmessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"pv-analysis-be/internal/pkg/logger"
	"pv-analysis-be/internal/repository/unitofwork"
)

// Persister drains the persist queue and applies slice overwrites to the
// database. Jobs are never retried: every message is acked, and a failed
// write leaves the column stale until the next mutation of the same slice
// rewrites it.
type Persister struct {
	pubSub     *gochannel.GoChannel
	topic      string
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewPersister(pubSub *gochannel.GoChannel, topic string, uowFactory unitofwork.RepositoryFactory, log logger.ILogger) *Persister {
	return &Persister{
		pubSub:     pubSub,
		topic:      topic,
		uowFactory: uowFactory,
		logger:     log,
	}
}

// Start subscribes and drains on a background goroutine until ctx ends.
func (p *Persister) Start(ctx context.Context) error {
	messages, err := p.pubSub.Subscribe(ctx, p.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			p.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (p *Persister) processMessage(ctx context.Context, msg *wmmessage.Message) {
	defer msg.Ack()

	var job persistJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		p.logger.Error("Persister", "Dropping malformed persist job", map[string]interface{}{"error": err.Error()})
		return
	}

	uow := p.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ProjectRepository().UpdateSlice(ctx, job.ProjectId, job.Slice, job.Payload); err != nil {
		p.logger.Error("Persister", "Slice write failed, column left stale", map[string]interface{}{
			"projectId": job.ProjectId.String(), "slice": job.Slice, "error": err.Error(),
		})
		return
	}

	p.logger.Debug("Persister", "Slice persisted", map[string]interface{}{
		"projectId": job.ProjectId.String(), "slice": job.Slice,
	})
}
