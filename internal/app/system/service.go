package system

import "context"

// Service is a long-running component whose lifetime is owned by the
// Manager: the interest scheduler and anything else that runs beside the
// HTTP surface implements it.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
