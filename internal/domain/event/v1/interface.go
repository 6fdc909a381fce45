package eventv1

import "context"

//go:generate mockgen -source=interface.go -destination=mock/interface_mock.go -package=eventv1_mock

// Publisher writes outbound events to the event log. Implementations keep
// per-key ordering; publishing is synchronous and returns the broker error.
type Publisher interface {
	PublishStatus(ctx context.Context, event *OrderStatusEvent) error
	PublishFill(ctx context.Context, event *OrderFillEvent) error
	PublishCompletion(ctx context.Context, event *OrderCompletionEvent) error
	PublishPortfolio(ctx context.Context, event *PortfolioEvent) error
	Close() error
}
