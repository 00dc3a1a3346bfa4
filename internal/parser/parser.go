// Package parser talks to the external text-to-structure service that turns a
// strategy description into typed conditions. The service is best-effort: any
// failure yields the deterministic fallback so activation is never blocked.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

// conditionSchema gates what the external service may hand us. Unknown
// variants fail validation here, never at evaluation time.
const conditionSchema = `{
  "type": "object",
  "required": ["type", "data"],
  "properties": {
    "type": {
      "enum": ["percentage_move", "single_correlation", "multi_asset_correlation"]
    },
    "data": {"type": "object"}
  }
}`

type Config struct {
	URL     string
	Timeout time.Duration
}

type Client struct {
	url    string
	client *http.Client
	schema *jsonschema.Schema
}

func New(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("condition.json", strings.NewReader(conditionSchema)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("condition.json")
	if err != nil {
		return nil, fmt.Errorf("compiling condition schema: %w", err)
	}
	return &Client{
		url:    strings.TrimSpace(cfg.URL),
		client: &http.Client{Timeout: cfg.Timeout},
		schema: schema,
	}, nil
}

// Parse converts free text into entry/exit conditions. It degrades to
// Fallback on any service, shape or validation failure; the returned bool
// reports whether the fallback was used.
func (c *Client) Parse(ctx context.Context, text string, hints map[string]string) (types.EntryCondition, types.ExitConditions, bool) {
	if c.url == "" {
		return fallbackWithLog(text, "no parser service configured")
	}
	entry, exit, err := c.parseRemote(ctx, text, hints)
	if err != nil {
		return fallbackWithLog(text, err.Error())
	}
	return entry, exit, false
}

func (c *Client) parseRemote(ctx context.Context, text string, hints map[string]string) (types.EntryCondition, types.ExitConditions, error) {
	reqBody, _ := json.Marshal(map[string]any{"text": text, "hints": hints})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, types.ExitConditions{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, types.ExitConditions{}, &types.TransientNetworkError{Op: "condition parse", Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, types.ExitConditions{}, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, types.ExitConditions{}, fmt.Errorf("parser service status=%d", resp.StatusCode)
	}
	if !gjson.ValidBytes(raw) {
		return nil, types.ExitConditions{}, fmt.Errorf("parser service returned invalid JSON")
	}

	entryRaw := gjson.GetBytes(raw, "entry_condition")
	if !entryRaw.Exists() {
		return nil, types.ExitConditions{}, fmt.Errorf("parser response missing entry_condition")
	}
	var entryDoc any
	if err := json.Unmarshal([]byte(entryRaw.Raw), &entryDoc); err != nil {
		return nil, types.ExitConditions{}, err
	}
	if err := c.schema.Validate(entryDoc); err != nil {
		return nil, types.ExitConditions{}, fmt.Errorf("entry condition failed schema validation: %w", err)
	}
	entry, err := types.DecodeEntryCondition([]byte(entryRaw.Raw))
	if err != nil {
		return nil, types.ExitConditions{}, err
	}

	exit := FallbackExit()
	if exitRaw := gjson.GetBytes(raw, "exit_conditions"); exitRaw.Exists() {
		var parsed types.ExitConditions
		if err := json.Unmarshal([]byte(exitRaw.Raw), &parsed); err != nil {
			return nil, types.ExitConditions{}, fmt.Errorf("decoding exit conditions: %w", err)
		}
		if parsed.StopLoss.Value > 0 {
			exit = parsed
		}
	}
	return entry, exit, nil
}

func fallbackWithLog(text, reason string) (types.EntryCondition, types.ExitConditions, bool) {
	logger.Warnf("parser: falling back to default conditions (%s); text=%q", reason, truncate(text, 120))
	return FallbackEntry(), FallbackExit(), true
}

// FallbackEntry is the deterministic default: a 2% upward move of BTCUSDT
// over one hour.
func FallbackEntry() types.EntryCondition {
	return types.PercentageMove{
		Asset:        "BTCUSDT",
		ThresholdPct: 2,
		Direction:    types.DirectionUp,
		Timeframe:    "1h",
	}
}

// FallbackExit always carries a stop loss so a fallback strategy can still be
// approved.
func FallbackExit() types.ExitConditions {
	return types.ExitConditions{
		StopLoss:   types.StopLoss{Type: types.StopLossPercentage, Value: 2, Trailing: true},
		TakeProfit: &types.TakeProfit{Type: types.StopLossPercentage, Value: 4},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
