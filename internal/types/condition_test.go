package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionMatches(t *testing.T) {
	t.Run("up requires change at or above threshold", func(t *testing.T) {
		assert.True(t, DirectionUp.Matches(2.5, 2))
		assert.True(t, DirectionUp.Matches(2, 2))
		assert.False(t, DirectionUp.Matches(1.9, 2))
		assert.False(t, DirectionUp.Matches(-3, 2))
	})
	t.Run("down is asymmetric", func(t *testing.T) {
		assert.True(t, DirectionDown.Matches(-2.5, 2))
		assert.False(t, DirectionDown.Matches(2.5, 2))
		assert.False(t, DirectionDown.Matches(-1.9, 2))
	})
	t.Run("any matches either side", func(t *testing.T) {
		assert.True(t, DirectionAny.Matches(2.5, 2))
		assert.True(t, DirectionAny.Matches(-2.5, 2))
		assert.False(t, DirectionAny.Matches(1, 2))
	})
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	cases := []EntryCondition{
		PercentageMove{Asset: "BTCUSDT", ThresholdPct: 2, Direction: DirectionUp, Timeframe: "1h"},
		SingleCorrelation{Primary: "ETHUSDT", Secondary: "BTCUSDT", ThresholdPct: 1.5, Direction: DirectionUp, Timeframe: "1h", CorrThreshold: 0.8},
		MultiAssetCorrelation{
			TargetAsset: "SOLUSDT",
			Triggers: []CorrelationTrigger{
				{Asset: "BTCUSDT", ThresholdPct: 1, Direction: DirectionUp, Timeframe: "1h"},
				{Asset: "ETHUSDT", ThresholdPct: 2, Direction: DirectionUp, Timeframe: "1h"},
			},
			DelayDays: 0.5,
		},
	}
	for _, c := range cases {
		raw, err := EncodeEntryCondition(c)
		require.NoError(t, err)
		back, err := DecodeEntryCondition(raw)
		require.NoError(t, err)
		assert.Equal(t, c, back)
	}
}

func TestDecodeRejectsUnknownAndReserved(t *testing.T) {
	_, err := DecodeEntryCondition([]byte(`{"type":"technical_indicator","data":{}}`))
	assert.True(t, IsValidation(err))

	_, err = DecodeEntryCondition([]byte(`{"type":"moon_phase","data":{}}`))
	assert.True(t, IsValidation(err))
}

func TestDecodeValidates(t *testing.T) {
	_, err := DecodeEntryCondition([]byte(`{"type":"percentage_move","data":{"asset":"BTCUSDT","threshold":0,"direction":"up","timeframe":"1h"}}`))
	assert.True(t, IsValidation(err))
}

func TestEffectiveCorrThresholdDefaults(t *testing.T) {
	assert.Equal(t, 0.7, SingleCorrelation{}.EffectiveCorrThreshold())
	assert.Equal(t, 0.9, SingleCorrelation{CorrThreshold: 0.9}.EffectiveCorrThreshold())
}

func TestDelayKeyOrderIndependent(t *testing.T) {
	a := MultiAssetCorrelation{
		TargetAsset: "solusdt",
		Triggers: []CorrelationTrigger{
			{Asset: "ETHUSDT", ThresholdPct: 1},
			{Asset: "btcusdt", ThresholdPct: 1},
		},
	}
	b := MultiAssetCorrelation{
		TargetAsset: "SOLUSDT",
		Triggers: []CorrelationTrigger{
			{Asset: "BTCUSDT", ThresholdPct: 2},
			{Asset: "ethusdt", ThresholdPct: 2},
		},
	}
	assert.Equal(t, a.DelayKey(), b.DelayKey())
}

func TestStrategyApprovable(t *testing.T) {
	valid := &Strategy{
		Status: StrategyPending,
		Entry:  PercentageMove{Asset: "BTCUSDT", ThresholdPct: 2, Direction: DirectionUp, Timeframe: "1h"},
		Exit:   ExitConditions{StopLoss: StopLoss{Type: StopLossPercentage, Value: 2}},
	}
	assert.NoError(t, valid.Approvable())

	t.Run("missing stop loss is fatal", func(t *testing.T) {
		s := *valid
		s.Exit.StopLoss.Value = 0
		assert.True(t, IsValidation(s.Approvable()))
	})
	t.Run("active strategy cannot be approved again", func(t *testing.T) {
		s := *valid
		s.Status = StrategyActive
		assert.True(t, IsValidation(s.Approvable()))
	})
	t.Run("paused strategy can be re-approved", func(t *testing.T) {
		s := *valid
		s.Status = StrategyPaused
		assert.NoError(t, s.Approvable())
	})
}
