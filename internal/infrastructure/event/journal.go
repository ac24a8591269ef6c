package event

import (
	"context"
	"encoding/json"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// JournalHandler writes every event it receives to the log as a JSON payload
type JournalHandler struct {
	logger *zap.Logger
}

// NewJournalHandler creates a JournalHandler
func NewJournalHandler(log *zap.Logger) *JournalHandler {
	return &JournalHandler{logger: log.Named("events")}
}

// EventTypes returns nil: the journal receives all events
func (h *JournalHandler) EventTypes() []string {
	return nil
}

// Handle logs the event
func (h *JournalHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	logger.Enrich(ctx, h.logger).Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
		zap.ByteString("payload", payload),
	)
	return nil
}

var _ shared.EventHandler = (*JournalHandler)(nil)
