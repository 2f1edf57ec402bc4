package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/access"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/cache"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/notify"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

// memLeads is an in-memory lead row store with the same filtering rules as
// the GORM repository.
type memLeads struct {
	mu        sync.Mutex
	rows      map[string]models.Lead
	listCalls int
	statCalls int
	failNext  error
}

func newMemLeads(leads ...models.Lead) *memLeads {
	m := &memLeads{rows: map[string]models.Lead{}}
	for _, l := range leads {
		m.rows[l.ID] = l
	}
	return m
}

func (m *memLeads) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memLeads) List(_ context.Context, f repository.LeadFilter) ([]models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	out := []models.Lead{}
	for _, l := range m.rows {
		if l.Archived() != f.Archived || !f.Scope.Allows(l.AssignedTo) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Archived {
			return out[i].ArchivedAt.After(*out[j].ArchivedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memLeads) FindByID(_ context.Context, id string) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	l, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (m *memLeads) Stats(_ context.Context, scope access.Scope) (*models.LeadStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statCalls++
	stats := &models.LeadStats{ByStatus: map[string]int64{}}
	for _, l := range m.rows {
		if !scope.Allows(l.AssignedTo) {
			continue
		}
		if l.Archived() {
			stats.Archived++
			continue
		}
		stats.Active++
		stats.ByStatus[l.Status]++
	}
	return stats, nil
}

func (m *memLeads) Create(_ context.Context, lead *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.rows[lead.ID] = *lead
	return nil
}

func (m *memLeads) Update(_ context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			l.Status = v.(string)
		case "first_name":
			l.FirstName = v.(string)
		case "notes":
			l.Notes = v.(string)
		case "lead_type":
			l.LeadType = v.(models.LeadType)
		}
	}
	m.rows[id] = l
	return nil
}

func (m *memLeads) Archive(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return false, err
	}
	l, ok := m.rows[id]
	if !ok || l.Archived() {
		return false, nil
	}
	l.ArchivedAt = &at
	m.rows[id] = l
	return true, nil
}

func (m *memLeads) Restore(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	if !ok || !l.Archived() {
		return false, nil
	}
	l.ArchivedAt = nil
	m.rows[id] = l
	return true, nil
}

func (m *memLeads) Assign(_ context.Context, id, profileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.AssignedTo = &profileID
	m.rows[id] = l
	return nil
}

func (m *memLeads) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *memLeads) row(id string) (models.Lead, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	return l, ok
}

type memProfiles struct {
	byID map[string]*models.Profile
}

func (m *memProfiles) FindByID(_ context.Context, id string) (*models.Profile, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) SubordinateIDs(_ context.Context, teamLeadID string) ([]string, error) {
	ids := []string{}
	for _, p := range m.byID {
		if p.Role == models.RoleAgent && p.TeamLeadID != nil && *p.TeamLeadID == teamLeadID {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memContacts struct {
	created []models.Contact
	err     error
}

func (m *memContacts) Create(_ context.Context, c *models.Contact) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, *c)
	return nil
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) NotifyAssignment(ctx context.Context, n notify.AssignmentNotice) error {
	return m.Called(ctx, n).Error(0)
}

// countingInvalidator wraps the real manager and counts calls.
type countingInvalidator struct {
	inner *cache.Manager
	calls int
}

func (c *countingInvalidator) InvalidateLeadsRelated() {
	c.calls++
	c.inner.InvalidateLeadsRelated()
}

var errStore = errors.New("connection reset by peer")

var base = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

// fixture is the team used across tests:
//
//	tl  team lead of a1
//	a1  agent on tl's team
//	a2  agent on another team
//	a3  agent with no team
//	admin
type fixture struct {
	leads      *memLeads
	profiles   *memProfiles
	contacts   *memContacts
	store      *cache.Store
	inval      *countingInvalidator
	dispatcher *mockDispatcher
	query      *LeadQueryService
	lifecycle  *LeadLifecycleService
}

func newFixture(t *testing.T, leads ...models.Lead) *fixture {
	t.Helper()
	profiles := &memProfiles{byID: map[string]*models.Profile{
		"tl":    {ID: "tl", Role: models.RoleTeamLead},
		"a1":    {ID: "a1", Role: models.RoleAgent, TeamLeadID: ptr("tl")},
		"a2":    {ID: "a2", Role: models.RoleAgent, TeamLeadID: ptr("tl-other")},
		"a3":    {ID: "a3", Role: models.RoleAgent},
		"admin": {ID: "admin", Role: models.RoleAdmin},
	}}
	store, err := cache.NewStore(128, 5*time.Minute)
	require.NoError(t, err)

	f := &fixture{
		leads:      newMemLeads(leads...),
		profiles:   profiles,
		contacts:   &memContacts{},
		store:      store,
		inval:      &countingInvalidator{inner: cache.NewManager(store, nil)},
		dispatcher: new(mockDispatcher),
	}
	resolver := access.NewResolver(profiles)
	f.query = NewLeadQueryService(f.leads, resolver, store, nil)
	f.lifecycle = NewLeadLifecycleService(f.leads, profiles, resolver, f.contacts, f.inval, f.dispatcher, nil)
	f.lifecycle.now = func() time.Time { return base.Add(time.Hour) }
	return f
}

func (f *fixture) profile(id string) *models.Profile {
	return f.profiles.byID[id]
}

func lead(id string, assignedTo *string, created time.Time) models.Lead {
	return models.Lead{
		ID:         id,
		LeadType:   models.LeadTypeBuyer,
		Status:     models.DefaultLeadStatus,
		AssignedTo: assignedTo,
		FirstName:  "Lead",
		LastName:   id,
		Email:      id + "@example.com",
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func archivedLead(id string, assignedTo *string, archivedAt time.Time) models.Lead {
	l := lead(id, assignedTo, base)
	l.ArchivedAt = &archivedAt
	return l
}

func ids(leads []models.Lead) []string {
	out := make([]string, len(leads))
	for i, l := range leads {
		out[i] = l.ID
	}
	return out
}

func requireCode(t *testing.T, err error, want *apperr.Error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, want)
}
