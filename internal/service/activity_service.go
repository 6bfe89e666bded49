package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// ActivityService observes ticket lifecycle events, emitting structured
// log lines and counters. Nothing is persisted; a stored audit trail is
// explicitly out of scope.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *ActivityService {
	return &ActivityService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleEvent)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.handleEvent)
	a.dispatcher.Subscribe(events.EventTicketPriorityChanged, a.handleEvent)
}

func (a *ActivityService) handleEvent(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("ticket_id", event.TicketID),
		zap.Int64("actor_user_id", event.Actor.UserID),
		zap.Any("payload", event.Payload),
	)
	a.metrics.RecordEvent(string(event.Type))
	return nil
}
