package limits

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeed() Limits {
	return Limits{
		DailyLossFloorUSD:    -500,
		MaxFailedTradesHour:  3,
		MaxSystemErrors5Min:  10,
		MaxConsecutiveStops:  3,
		ExtremeMoveHourlyPct: 10,
		PortfolioUSD:         10000,
	}
}

func writeLimitsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStaticProvider(t *testing.T) {
	p := Static{L: testSeed()}
	assert.Equal(t, -500.0, p.Current().DailyLossFloorUSD)
}

func TestRegistryWithoutFileKeepsSeed(t *testing.T) {
	r, err := NewRegistry("", testSeed())
	require.NoError(t, err)
	assert.Equal(t, testSeed(), r.Current())
}

func TestRegistryLoadsFile(t *testing.T) {
	path := writeLimitsFile(t, `
daily_loss_floor_usd: -1000
max_failed_trades_hour: 5
max_system_errors_5min: 20
max_consecutive_stops: 4
extreme_move_hourly_pct: 12
portfolio_usd: 50000
`)
	r, err := NewRegistry(path, testSeed())
	require.NoError(t, err)

	got := r.Current()
	assert.Equal(t, -1000.0, got.DailyLossFloorUSD)
	assert.Equal(t, 5, got.MaxFailedTradesHour)
	assert.Equal(t, 4, got.MaxConsecutiveStops)
	assert.Equal(t, 50000.0, got.PortfolioUSD)
}

func TestRegistryPartialFileInheritsSeed(t *testing.T) {
	path := writeLimitsFile(t, "daily_loss_floor_usd: -2000\n")
	r, err := NewRegistry(path, testSeed())
	require.NoError(t, err)

	got := r.Current()
	assert.Equal(t, -2000.0, got.DailyLossFloorUSD)
	assert.Equal(t, 3, got.MaxFailedTradesHour)
	assert.Equal(t, 10.0, got.ExtremeMoveHourlyPct)
}

func TestRegistryRejectsInvalidFile(t *testing.T) {
	t.Run("positive loss floor", func(t *testing.T) {
		path := writeLimitsFile(t, "daily_loss_floor_usd: 100\n")
		_, err := NewRegistry(path, testSeed())
		assert.Error(t, err)
	})
	t.Run("zero failed trades limit", func(t *testing.T) {
		path := writeLimitsFile(t, "max_failed_trades_hour: 0\n")
		_, err := NewRegistry(path, testSeed())
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := NewRegistry(filepath.Join(t.TempDir(), "absent.yaml"), testSeed())
		assert.Error(t, err)
	})
}
