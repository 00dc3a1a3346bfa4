// Package notify carries fire-and-forget notifications. Delivery failures are
// logged and never affect trading state.
package notify

import (
	"fmt"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
)

type Kind string

const (
	KindTrade     Kind = "trade"
	KindError     Kind = "error"
	KindCritical  Kind = "critical"
	KindEmergency Kind = "emergency"
)

// Notifier is intentionally small so components can depend on it without
// importing concrete implementations.
type Notifier interface {
	Notify(kind Kind, title, body string)
}

// Noop discards everything; the default when no channel is configured.
type Noop struct{}

func (Noop) Notify(Kind, string, string) {}

// Logged wraps a text sender and downgrades failures to log lines.
type Logged struct {
	Sender interface {
		SendText(text string) error
	}
}

func (l Logged) Notify(kind Kind, title, body string) {
	if l.Sender == nil {
		return
	}
	prefix := map[Kind]string{
		KindTrade:     "[TRADE]",
		KindError:     "[ERROR]",
		KindCritical:  "[CRITICAL]",
		KindEmergency: "[EMERGENCY]",
	}[kind]
	if prefix == "" {
		prefix = "[INFO]"
	}
	text := fmt.Sprintf("%s %s\n%s", prefix, title, body)
	go func() {
		if err := l.Sender.SendText(text); err != nil {
			logger.Warnf("notify: delivery failed (%s %s): %v", kind, title, err)
		}
	}()
}
