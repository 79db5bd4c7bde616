package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PremHer/appdelivery-sub000/repository"
)

// PublisherConfig tunes the outbox polling loop.
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Publisher drains the outbox table into the broker. Tasks that fail to
// send are retried on later polls until MaxAttempts.
type Publisher struct {
	repo     *repository.OutboxRepository
	producer Producer
	config   PublisherConfig
	log      *zap.Logger

	wg       sync.WaitGroup
	shutdown chan struct{}
	stopOnce sync.Once
}

func NewPublisher(repo *repository.OutboxRepository, producer Producer, config PublisherConfig, log *zap.Logger) *Publisher {
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 20
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	return &Publisher{
		repo:     repo,
		producer: producer,
		config:   config,
		log:      log,
		shutdown: make(chan struct{}),
	}
}

// Run polls until the context is cancelled or Shutdown is called.
func (p *Publisher) Run(ctx context.Context) {
	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.log.Error("outbox batch failed", zap.Error(err))
			}
		case <-p.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown stops the loop and closes the producer.
func (p *Publisher) Shutdown() {
	p.stopOnce.Do(func() {
		close(p.shutdown)
		p.wg.Wait()
		if err := p.producer.Close(); err != nil {
			p.log.Error("close producer", zap.Error(err))
		}
	})
}

func (p *Publisher) processBatch(ctx context.Context) error {
	tasks, err := p.repo.GetProcessable(ctx, p.config.BatchSize, p.config.MaxAttempts)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		select {
		case <-p.shutdown:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		p.processSingleTask(ctx, task)
	}
	return nil
}

func (p *Publisher) processSingleTask(ctx context.Context, task *repository.OutboxTask) {
	key := []byte(task.ID.String())
	if err := p.producer.SendMessage(ctx, task.Topic, key, task.Payload); err != nil {
		attempts := task.Attempts + 1
		msg := err.Error()
		p.log.Warn("outbox send failed",
			zap.String("task", task.ID.String()),
			zap.Int("attempts", attempts),
			zap.Error(err))
		if uerr := p.repo.UpdateStatus(ctx, task.ID, repository.TaskStatusFailed, attempts, &msg, false); uerr != nil {
			p.log.Error("update task after send failure", zap.String("task", task.ID.String()), zap.Error(uerr))
		}
		return
	}
	if err := p.repo.UpdateStatus(ctx, task.ID, repository.TaskStatusDone, task.Attempts, nil, true); err != nil {
		p.log.Error("update task after send", zap.String("task", task.ID.String()), zap.Error(err))
	}
}
