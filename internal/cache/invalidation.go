package cache

import (
	"log/slog"
	"strconv"
)

// Key namespaces owned by the lead invalidation manager.
const (
	LeadsNamespace     = "leads:"
	LeadStatsNamespace = "lead_stats:"
)

// LeadsKey is the listing key for one acting profile and archive mode.
func LeadsKey(profileID string, includeArchived bool) string {
	return LeadsNamespace + profileID + ":" + strconv.FormatBool(includeArchived)
}

func LeadStatsKey(profileID string) string {
	return LeadStatsNamespace + profileID
}

// Invalidator is what lead mutations depend on.
type Invalidator interface {
	InvalidateLeadsRelated()
}

// Manager maps the "leads changed" event onto its owned namespaces.
type Manager struct {
	store      *Store
	namespaces []string
	logger     *slog.Logger
}

func NewManager(store *Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      store,
		namespaces: []string{LeadsNamespace, LeadStatsNamespace},
		logger:     logger.With(slog.String("component", "cache")),
	}
}

// Namespaces returns a copy of the owned key prefixes.
func (m *Manager) Namespaces() []string {
	return append([]string(nil), m.namespaces...)
}

// InvalidateLeadsRelated drops every listing and aggregate key for every
// profile. Loads that started before the call will not be cached.
func (m *Manager) InvalidateLeadsRelated() {
	removed := m.store.Invalidate(m.namespaces...)
	m.logger.Debug("lead cache invalidated", "removed", removed, "generation", m.store.Generation())
}
