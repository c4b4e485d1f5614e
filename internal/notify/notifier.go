// Package notify is the dispatcher boundary: it consumes the alert
// reader's output and attempts delivery. It never mutates the ledger, and
// a failure on one alert never blocks attempts on the rest.
package notify

import (
	"context"
	"log"
)

// Alert is one outbound district alert ready for delivery
type Alert struct {
	DistrictID uint
	Message    string
}

// Notifier delivers one alert to a channel (email, Slack, log)
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the process log. Used in development and as
// the fallback when no delivery channel is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	log.Printf("[alert] district %d: %s", alert.DistrictID, alert.Message)
	return nil
}

// MultiNotifier fans one alert out to several channels. Every channel is
// attempted; the first error is returned after all attempts.
type MultiNotifier []Notifier

func (m MultiNotifier) Send(ctx context.Context, alert Alert) error {
	var firstErr error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
