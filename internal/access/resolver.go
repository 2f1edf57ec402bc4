// Package access resolves the acting profile and the set of leads it may see.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
)

// ProfileSource is the row-store view the resolver needs. FindByID reports a
// missing row with an error matching apperr.ErrNotFound.
type ProfileSource interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	SubordinateIDs(ctx context.Context, teamLeadID string) ([]string, error)
}

type Resolver struct {
	profiles ProfileSource
}

func NewResolver(profiles ProfileSource) *Resolver {
	return &Resolver{profiles: profiles}
}

// ResolveActingProfile loads the profile behind an authenticated principal id.
func (r *Resolver) ResolveActingProfile(ctx context.Context, principalID string) (*models.Profile, error) {
	if principalID == "" {
		return nil, apperr.Authentication("no authenticated principal")
	}

	profile, err := r.profiles.FindByID(ctx, principalID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Authentication("principal has no profile")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to load profile")
	}
	if err := checkRole(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SubordinateIDs returns the agents supervised by teamLeadID. It always hits
// the row store; the membership set is never cached.
func (r *Resolver) SubordinateIDs(ctx context.Context, teamLeadID string) ([]string, error) {
	ids, err := r.profiles.SubordinateIDs(ctx, teamLeadID)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to load team members")
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// ScopeFor builds the visibility scope of profile.
func (r *Resolver) ScopeFor(ctx context.Context, profile *models.Profile) (Scope, error) {
	if err := checkRole(profile); err != nil {
		return Scope{}, err
	}

	switch profile.Role {
	case models.RoleAdmin:
		return Scope{Unrestricted: true}, nil
	case models.RoleTeamLead:
		subs, err := r.SubordinateIDs(ctx, profile.ID)
		if err != nil {
			return Scope{}, err
		}
		return NewScope(append([]string{profile.ID}, subs...)...), nil
	default:
		return NewScope(profile.ID), nil
	}
}

func checkRole(profile *models.Profile) error {
	if profile == nil {
		return apperr.Dependency(errors.New("nil profile"), "invalid profile row")
	}
	if !profile.Role.Valid() {
		return apperr.Dependency(fmt.Errorf("profile %s has unknown role %q", profile.ID, profile.Role), "invalid profile row")
	}
	return nil
}
