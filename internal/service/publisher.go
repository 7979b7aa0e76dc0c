package service

import (
	"context"

	"storefront/internal/models"
)

// EventPublisher delivers domain events after the state change committed
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishProductChanged(ctx context.Context, event *models.ProductChangedEvent) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, *models.OrderPlacedEvent) error {
	return nil
}

func (NopPublisher) PublishProductChanged(context.Context, *models.ProductChangedEvent) error {
	return nil
}
