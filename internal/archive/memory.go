package archive

import (
	"context"
	"sync"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

// MemoryArchive keeps everything in process. Used for local runs without a
// database and in tests.
type MemoryArchive struct {
	mu      sync.RWMutex
	samples []models.RankingSample
	audits  []*models.AuditResult
	alerts  map[string]models.Alert
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{alerts: make(map[string]models.Alert)}
}

func (m *MemoryArchive) AppendSamples(_ context.Context, _ string, samples []models.RankingSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, samples...)
	return nil
}

func (m *MemoryArchive) AppendAudit(_ context.Context, result *models.AuditResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, result)
	return nil
}

func (m *MemoryArchive) SaveAlert(_ context.Context, _ string, alert models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alert.ID] = alert
	return nil
}

func (m *MemoryArchive) Close() error {
	return nil
}

// Samples returns every archived sample in append order.
func (m *MemoryArchive) Samples() []models.RankingSample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.RankingSample, len(m.samples))
	copy(out, m.samples)
	return out
}

// Audits returns every archived audit in append order.
func (m *MemoryArchive) Audits() []*models.AuditResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.AuditResult, len(m.audits))
	copy(out, m.audits)
	return out
}

// Alert returns the archived state of one alert.
func (m *MemoryArchive) Alert(id string) (models.Alert, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.alerts[id]
	return a, ok
}
