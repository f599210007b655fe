package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/thryve/studio-scheduler-api/internal/models"
)

// LogNotifier is the default Notifier: it records deliveries in the log.
// Production deployments swap in the platform notification service client.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the event.
func (n *LogNotifier) Notify(_ context.Context, event models.OutboundEvent) error {
	n.logger.Info("notification dispatched",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("studio_id", event.StudioID),
		zap.Int("recipients", len(event.Recipients)),
	)
	return nil
}

// LogPaymentGateway is the default PaymentGateway: it records payment
// intents in the log.
type LogPaymentGateway struct {
	logger *zap.Logger
}

// NewLogPaymentGateway constructs a log-backed payment gateway.
func NewLogPaymentGateway(logger *zap.Logger) *LogPaymentGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPaymentGateway{logger: logger}
}

// Process logs the payment event.
func (g *LogPaymentGateway) Process(_ context.Context, event models.OutboundEvent) error {
	g.logger.Info("payment event dispatched",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
	)
	return nil
}
