package services

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/access"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/cache"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/repository"
)

type LeadReader interface {
	List(ctx context.Context, f repository.LeadFilter) ([]models.Lead, error)
	FindByID(ctx context.Context, id string) (*models.Lead, error)
	Stats(ctx context.Context, scope access.Scope) (*models.LeadStats, error)
}

type ScopeResolver interface {
	ScopeFor(ctx context.Context, profile *models.Profile) (access.Scope, error)
}

// Cache is read before the row store. Results are written back with the
// generation taken before the load so an overlapping invalidation wins.
type Cache interface {
	Get(key string) (any, time.Time, bool)
	Generation() uint64
	SetIfGeneration(key string, value any, gen uint64) bool
}

type ListOptions struct {
	IncludeArchived bool
}

// LeadQueryService serves role-scoped lead reads, cache first.
type LeadQueryService struct {
	leads  LeadReader
	scopes ScopeResolver
	cache  Cache
	logger *slog.Logger
}

func NewLeadQueryService(leads LeadReader, scopes ScopeResolver, c Cache, logger *slog.Logger) *LeadQueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeadQueryService{
		leads:  leads,
		scopes: scopes,
		cache:  c,
		logger: logger.With(slog.String("component", "lead_query")),
	}
}

// ListLeads returns the active or archived leads visible to profile. Listings
// are cached per acting profile and archive mode.
func (s *LeadQueryService) ListLeads(ctx context.Context, profile *models.Profile, opts ListOptions) ([]models.Lead, error) {
	key := cache.LeadsKey(profile.ID, opts.IncludeArchived)
	if v, _, ok := s.cache.Get(key); ok {
		if leads, ok := v.([]models.Lead); ok {
			return slices.Clone(leads), nil
		}
		s.logger.Warn("unexpected cached listing type", "key", key)
	}
	gen := s.cache.Generation()

	scope, err := s.scopes.ScopeFor(ctx, profile)
	if err != nil {
		return nil, err
	}

	leads, err := s.leads.List(ctx, repository.LeadFilter{Scope: scope, Archived: opts.IncludeArchived})
	if err != nil {
		return nil, apperr.Dependency(err, "failed to list leads")
	}
	if err := checkLeadRows(leads); err != nil {
		return nil, err
	}

	s.cache.SetIfGeneration(key, slices.Clone(leads), gen)
	return leads, nil
}

// GetLead returns one lead if it is inside profile's scope.
func (s *LeadQueryService) GetLead(ctx context.Context, profile *models.Profile, id string) (*models.Lead, error) {
	lead, err := s.leads.FindByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to load lead")
	}

	scope, err := s.scopes.ScopeFor(ctx, profile)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(lead.AssignedTo) {
		return nil, apperr.Authorization("lead is outside your visibility scope")
	}
	return lead, nil
}

// LeadStats aggregates the leads visible to profile.
func (s *LeadQueryService) LeadStats(ctx context.Context, profile *models.Profile) (*models.LeadStats, error) {
	key := cache.LeadStatsKey(profile.ID)
	if v, _, ok := s.cache.Get(key); ok {
		if stats, ok := v.(models.LeadStats); ok {
			stats.ByStatus = maps.Clone(stats.ByStatus)
			return &stats, nil
		}
	}
	gen := s.cache.Generation()

	scope, err := s.scopes.ScopeFor(ctx, profile)
	if err != nil {
		return nil, err
	}

	stats, err := s.leads.Stats(ctx, scope)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to compute lead stats")
	}

	cached := *stats
	cached.ByStatus = maps.Clone(stats.ByStatus)
	s.cache.SetIfGeneration(key, cached, gen)
	return stats, nil
}

// checkLeadRows rejects rows whose ownership or lifecycle fields are unusable.
func checkLeadRows(leads []models.Lead) error {
	for i := range leads {
		if leads[i].ID == "" {
			return apperr.Dependency(errors.New("lead row without id"), "invalid lead row")
		}
		if leads[i].AssignedTo != nil && *leads[i].AssignedTo == "" {
			return apperr.Dependency(errors.New("lead "+leads[i].ID+" has empty assigned_to"), "invalid lead row")
		}
	}
	return nil
}
