package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"go-rental-ws/internal/model"
)

const publishTimeout = 5 * time.Second

// EventPublisher delivers committed order changes to interested parties.
type EventPublisher interface {
	Publish(ctx context.Context, event model.OrderEvent) error
}

// MultiPublisher fans an event out to every publisher. A failing publisher is
// logged and skipped; publishing never fails the operation that triggered it.
type MultiPublisher struct {
	publishers []EventPublisher
	log        *logrus.Logger
}

func NewMultiPublisher(log *logrus.Logger, publishers ...EventPublisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers, log: log}
}

func (m *MultiPublisher) Publish(ctx context.Context, event model.OrderEvent) error {
	for _, p := range m.publishers {
		if err := p.Publish(ctx, event); err != nil {
			m.log.WithFields(logrus.Fields{
				"order_code": event.OrderCode,
				"type":       event.Type,
				"error":      err,
			}).Warn("order event publish failed")
		}
	}
	return nil
}

func publish(log *logrus.Logger, p EventPublisher, event model.OrderEvent) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, event); err != nil {
		log.WithFields(logrus.Fields{"order_code": event.OrderCode, "type": event.Type, "error": err}).Warn("order event publish failed")
	}
}
