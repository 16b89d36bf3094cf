package application

import (
	"context"

	"sprachbot/internal/domain"
)

// UpdateSource delivers inbound chat events, one at a time.
type UpdateSource interface {
	Start(ctx context.Context) error
	Stop() error
	Next(ctx context.Context) (domain.Event, error)
	Name() string
}
