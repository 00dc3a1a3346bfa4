package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ConditionKind tags the closed set of entry-condition variants. Unknown kinds
// are rejected when a condition is decoded, never at evaluation time.
type ConditionKind string

const (
	KindPercentageMove        ConditionKind = "percentage_move"
	KindSingleCorrelation     ConditionKind = "single_correlation"
	KindMultiAssetCorrelation ConditionKind = "multi_asset_correlation"
	// KindTechnicalIndicator is reserved; decoding it fails with a clear error.
	KindTechnicalIndicator ConditionKind = "technical_indicator"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionAny  Direction = "any"
)

// Matches reports whether a signed percentage change satisfies the direction
// and threshold. Down moves are asymmetric: the change must be at or below the
// negated threshold.
func (d Direction) Matches(changePct, thresholdPct float64) bool {
	switch d {
	case DirectionUp:
		return changePct >= thresholdPct
	case DirectionDown:
		return changePct <= -thresholdPct
	case DirectionAny:
		return changePct >= thresholdPct || changePct <= -thresholdPct
	default:
		return false
	}
}

// EntryCondition is the tagged union of strategy entry conditions. Conditions
// are immutable once attached to an approved strategy.
type EntryCondition interface {
	Kind() ConditionKind
	// RequiredAssets lists every symbol the condition needs fresh data for.
	RequiredAssets() []string
	Validate() error
}

// PercentageMove fires when the asset moved more than ThresholdPct over
// Timeframe (e.g. "1h") in the configured direction.
type PercentageMove struct {
	Asset        string    `json:"asset"`
	ThresholdPct float64   `json:"threshold"`
	Direction    Direction `json:"direction"`
	Timeframe    string    `json:"timeframe"`
}

func (c PercentageMove) Kind() ConditionKind      { return KindPercentageMove }
func (c PercentageMove) RequiredAssets() []string { return []string{c.Asset} }

func (c PercentageMove) Validate() error {
	if strings.TrimSpace(c.Asset) == "" {
		return &ValidationError{Reason: "percentage_move: asset is required"}
	}
	if c.ThresholdPct <= 0 {
		return &ValidationError{Reason: "percentage_move: threshold must be > 0"}
	}
	switch c.Direction {
	case DirectionUp, DirectionDown, DirectionAny:
	default:
		return &ValidationError{Reason: fmt.Sprintf("percentage_move: unknown direction %q", c.Direction)}
	}
	if strings.TrimSpace(c.Timeframe) == "" {
		return &ValidationError{Reason: "percentage_move: timeframe is required"}
	}
	return nil
}

// SingleCorrelation fires when the secondary asset's move exceeds ThresholdPct
// and its Pearson correlation with the primary asset stays at or above
// CorrThreshold. Correlation below threshold short-circuits to false.
type SingleCorrelation struct {
	Primary       string    `json:"primary"`
	Secondary     string    `json:"secondary"`
	ThresholdPct  float64   `json:"threshold"`
	Direction     Direction `json:"direction"`
	Timeframe     string    `json:"timeframe"`
	CorrThreshold float64   `json:"corr_threshold,omitempty"`
}

func (c SingleCorrelation) Kind() ConditionKind { return KindSingleCorrelation }
func (c SingleCorrelation) RequiredAssets() []string {
	return []string{c.Primary, c.Secondary}
}

func (c SingleCorrelation) Validate() error {
	if strings.TrimSpace(c.Primary) == "" || strings.TrimSpace(c.Secondary) == "" {
		return &ValidationError{Reason: "single_correlation: primary and secondary assets are required"}
	}
	if c.ThresholdPct <= 0 {
		return &ValidationError{Reason: "single_correlation: threshold must be > 0"}
	}
	if c.CorrThreshold < 0 || c.CorrThreshold > 1 {
		return &ValidationError{Reason: "single_correlation: corr_threshold must be within [0,1]"}
	}
	return nil
}

// EffectiveCorrThreshold returns the configured threshold or the default 0.7.
func (c SingleCorrelation) EffectiveCorrThreshold() float64 {
	if c.CorrThreshold > 0 {
		return c.CorrThreshold
	}
	return 0.7
}

// CorrelationTrigger is one leg of a MultiAssetCorrelation condition.
type CorrelationTrigger struct {
	Asset        string    `json:"asset"`
	ThresholdPct float64   `json:"threshold"`
	Direction    Direction `json:"direction"`
	Timeframe    string    `json:"timeframe"`
}

// MultiAssetCorrelation fires when every trigger independently satisfies its
// direction/threshold. With DelayDays > 0 the first fully-satisfied time is
// recorded and the signal only fires once the delay has elapsed.
type MultiAssetCorrelation struct {
	Triggers    []CorrelationTrigger `json:"triggers"`
	TargetAsset string               `json:"target_asset"`
	DelayDays   float64              `json:"delay_days"`
}

func (c MultiAssetCorrelation) Kind() ConditionKind { return KindMultiAssetCorrelation }

func (c MultiAssetCorrelation) RequiredAssets() []string {
	out := make([]string, 0, len(c.Triggers)+1)
	out = append(out, c.TargetAsset)
	for _, t := range c.Triggers {
		out = append(out, t.Asset)
	}
	return out
}

func (c MultiAssetCorrelation) Validate() error {
	if strings.TrimSpace(c.TargetAsset) == "" {
		return &ValidationError{Reason: "multi_asset_correlation: target_asset is required"}
	}
	if len(c.Triggers) == 0 {
		return &ValidationError{Reason: "multi_asset_correlation: at least one trigger is required"}
	}
	for i, t := range c.Triggers {
		if strings.TrimSpace(t.Asset) == "" {
			return &ValidationError{Reason: fmt.Sprintf("multi_asset_correlation: trigger %d missing asset", i)}
		}
		if t.ThresholdPct <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("multi_asset_correlation: trigger %d threshold must be > 0", i)}
		}
	}
	if c.DelayDays < 0 {
		return &ValidationError{Reason: "multi_asset_correlation: delay_days cannot be negative"}
	}
	return nil
}

// DelayKey identifies the pending-delay record for this condition. Two
// strategies sharing an identical target plus trigger set share one record.
func (c MultiAssetCorrelation) DelayKey() string {
	assets := make([]string, 0, len(c.Triggers))
	for _, t := range c.Triggers {
		assets = append(assets, strings.ToUpper(t.Asset))
	}
	sort.Strings(assets)
	return strings.ToUpper(c.TargetAsset) + "|" + strings.Join(assets, ",")
}

type conditionEnvelope struct {
	Type ConditionKind   `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncodeEntryCondition wraps a condition in a {type, data} envelope for storage.
func EncodeEntryCondition(c EntryCondition) ([]byte, error) {
	if c == nil {
		return nil, &ValidationError{Reason: "entry condition is nil"}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(conditionEnvelope{Type: c.Kind(), Data: data})
}

// DecodeEntryCondition reverses EncodeEntryCondition. Unknown or reserved
// variants fail here so evaluation never sees them.
func DecodeEntryCondition(raw []byte) (EntryCondition, error) {
	var env conditionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding condition envelope: %w", err)
	}
	var cond EntryCondition
	switch env.Type {
	case KindPercentageMove:
		var c PercentageMove
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return nil, err
		}
		cond = c
	case KindSingleCorrelation:
		var c SingleCorrelation
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return nil, err
		}
		cond = c
	case KindMultiAssetCorrelation:
		var c MultiAssetCorrelation
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return nil, err
		}
		cond = c
	case KindTechnicalIndicator:
		return nil, &ValidationError{Reason: "technical_indicator conditions are reserved and not implemented"}
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown condition type %q", env.Type)}
	}
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	return cond, nil
}
