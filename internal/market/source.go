package market

import "context"

// TickEvent carries a best-bid/ask update from the exchange stream.
type TickEvent struct {
	Symbol    string
	Price     float64
	Bid       float64
	Ask       float64
	Quantity  float64
	EventTime int64
}

type SubscribeOptions struct {
	Buffer int
	// MaxAttempts bounds consecutive failed (re)connect attempts. When
	// exhausted the source stops retrying and closes the event channel;
	// recovering from that requires external intervention.
	MaxAttempts  int
	OnConnect    func()
	OnDisconnect func(error)
}

type SourceStats struct {
	Reconnects      int
	SubscribeErrors int
	LastError       string
}

type Source interface {
	// FetchHistory returns up to limit closed candles for symbol/interval.
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)

	// SubscribeTicks streams live tick events for the given symbols. The
	// returned channel closes when ctx is cancelled or reconnect attempts
	// are exhausted.
	SubscribeTicks(ctx context.Context, symbols []string, opts SubscribeOptions) (<-chan TickEvent, error)

	Stats() SourceStats

	Close() error
}
