package orchestrator

import (
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/alerting"
	httpserver "github.com/EricMurray-e-m-dev/RankMonkey/internal/http"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

// persistingAlerts persists lifecycle transitions made through the API or the
// event bus so acknowledged and resolved state survives a restart.
type persistingAlerts struct {
	*alerting.Manager
	persist func(models.Alert)
}

// AlertService returns the alert manager wrapped with persistence.
func (o *Orchestrator) AlertService() httpserver.AlertService {
	return &persistingAlerts{Manager: o.alerts, persist: o.persistAlert}
}

// Acknowledge and Resolve persist only when the alert actually changed, so
// repeating a transition has no further side effects.
func (s *persistingAlerts) Acknowledge(id string) bool {
	before, _ := s.Get(id)
	if !s.Manager.Acknowledge(id) {
		return false
	}
	if after, ok := s.Get(id); ok && after.Acknowledged != before.Acknowledged {
		s.persist(after)
	}
	return true
}

func (s *persistingAlerts) Resolve(id string) bool {
	before, _ := s.Get(id)
	if !s.Manager.Resolve(id) {
		return false
	}
	if after, ok := s.Get(id); ok && after.Resolved != before.Resolved {
		s.persist(after)
	}
	return true
}
