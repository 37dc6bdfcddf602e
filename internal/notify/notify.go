// Package notify holds the notification sinks for high severity alerts.
package notify

import (
	"context"
	"errors"
	"log"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

// Notifier delivers one alert to an external sink.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// Multi fans an alert out to every sink. A failing sink does not stop the
// others; all errors are joined.
type Multi struct {
	sinks []Notifier
}

func NewMulti(sinks ...Notifier) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Add registers another sink.
func (m *Multi) Add(sink Notifier) {
	if sink != nil {
		m.sinks = append(m.sinks, sink)
	}
}

// Len returns the number of registered sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

func (m *Multi) Notify(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes alerts to the process log. Used when no external sink
// is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, alert models.Alert) error {
	log.Printf("[Notify] %s %s alert: %s - %s", alert.Severity, alert.Type, alert.Title, alert.Description)
	return nil
}
