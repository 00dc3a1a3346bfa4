package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFeed() *Feed {
	h := NewHistory(100, time.Minute)
	return NewFeed(FeedConfig{
		Symbols:        []string{"BTCUSDT"},
		Heartbeat:      30 * time.Second,
		MaxSpreadRatio: 0.10,
	}, nil, h)
}

func TestFeedHandleTickStoresQuote(t *testing.T) {
	f := newTestFeed()
	f.handleTick(TickEvent{Symbol: "btcusdt", Bid: 44990, Ask: 45010, Quantity: 1})

	q, ok := f.Quote("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 45000.0, q.Price)
	assert.Equal(t, int64(1), q.Sequence)
	assert.Equal(t, 1, f.history.Len("BTCUSDT"))
}

func TestFeedRejectsBadTicks(t *testing.T) {
	f := newTestFeed()

	t.Run("non-positive price", func(t *testing.T) {
		f.handleTick(TickEvent{Symbol: "BTCUSDT", Bid: -1, Ask: 1})
		_, ok := f.Quote("BTCUSDT")
		assert.False(t, ok)
	})
	t.Run("excessive spread", func(t *testing.T) {
		f.handleTick(TickEvent{Symbol: "BTCUSDT", Bid: 100, Ask: 150})
		_, ok := f.Quote("BTCUSDT")
		assert.False(t, ok)
	})
	assert.Equal(t, int64(2), f.RejectedTicks())
	assert.Zero(t, f.history.Len("BTCUSDT"))
}

func TestFeedSequenceIsMonotonic(t *testing.T) {
	f := newTestFeed()
	for i := 0; i < 5; i++ {
		f.handleTick(TickEvent{Symbol: "BTCUSDT", Bid: 44990, Ask: 45010})
	}
	q, _ := f.Quote("BTCUSDT")
	assert.Equal(t, int64(5), q.Sequence)
}

func TestFeedDisconnectClearsQuotesSynchronously(t *testing.T) {
	f := newTestFeed()
	var disconnects int
	f.OnDisconnected(func(error) {
		// The quote table must already be empty when listeners run.
		_, ok := f.Quote("BTCUSDT")
		assert.False(t, ok)
		disconnects++
	})

	f.markConnected()
	f.handleTick(TickEvent{Symbol: "BTCUSDT", Bid: 44990, Ask: 45010})
	require.True(t, f.IsConnected())

	f.markDisconnected(assert.AnError)
	assert.False(t, f.IsConnected())
	assert.Equal(t, 1, disconnects)

	// Repeated disconnects do not re-notify.
	f.markDisconnected(assert.AnError)
	assert.Equal(t, 1, disconnects)
}

func TestFeedConnectNotifiesOnce(t *testing.T) {
	f := newTestFeed()
	var connects int
	f.OnConnected(func() { connects++ })

	f.markConnected()
	f.markConnected()
	assert.Equal(t, 1, connects)

	f.markDisconnected(assert.AnError)
	f.markConnected()
	assert.Equal(t, 2, connects)
}
