package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thryve/studio-scheduler-api/internal/models"
	"github.com/thryve/studio-scheduler-api/pkg/jobs"
)

// Notifier delivers a notification event to its recipients. Delivery
// transport (push, email, SMS) is owned by an external service.
type Notifier interface {
	Notify(ctx context.Context, event models.OutboundEvent) error
}

// PaymentGateway executes a payment side effect (capture, credit, penalty).
type PaymentGateway interface {
	Process(ctx context.Context, event models.OutboundEvent) error
}

// Dispatcher forwards outbound events to the notifier and payment gateway
// through a retrying background queue. Emit never blocks the caller on
// delivery and never fails the triggering state transition: enqueue errors
// are logged and dropped.
type Dispatcher struct {
	queue    *jobs.Queue
	notifier Notifier
	payments PaymentGateway
	logger   *zap.Logger
}

// DispatcherConfig tunes the backing queue.
type DispatcherConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NewDispatcher wires a dispatcher with its queue. Start must be called
// before events are emitted.
func NewDispatcher(notifier Notifier, payments PaymentGateway, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		notifier: notifier,
		payments: payments,
		logger:   logger,
	}
	d.queue = jobs.NewQueue("outbound-events", d.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return d
}

// Start launches the queue workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the queue workers.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// Emit enqueues an outbound event. Failures are logged, never returned.
func (d *Dispatcher) Emit(event models.OutboundEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}

	job := jobs.Job{ID: event.ID, Type: string(event.Type), Payload: event}
	if err := d.queue.Enqueue(job); err != nil {
		d.logger.Error("drop outbound event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.OutboundEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}

	switch event.Type {
	case models.EventPaymentCapture, models.EventPaymentCredit, models.EventNoShowPenalty:
		if d.payments == nil {
			return nil
		}
		return d.payments.Process(ctx, event)
	default:
		if d.notifier == nil {
			return nil
		}
		return d.notifier.Notify(ctx, event)
	}
}
