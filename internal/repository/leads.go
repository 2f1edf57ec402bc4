// Package repository is the GORM-backed row store for profiles, leads and contacts.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/access"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound matches apperr.ErrNotFound under errors.Is.
var ErrNotFound = apperr.NotFound("record not found")

type LeadFilter struct {
	Scope    access.Scope
	Archived bool
}

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) List(ctx context.Context, f LeadFilter) ([]models.Lead, error) {
	leads := []models.Lead{}
	err := r.db.WithContext(ctx).
		Scopes(VisibleTo(f.Scope), ArchiveState(f.Archived), ListingOrder(f.Archived)).
		Find(&leads).Error
	if err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.WithContext(ctx).First(&lead, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

// Update applies column edits. updated_at is bumped.
func (r *LeadRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Archive sets archived_at on an active lead. It reports false when no active
// row matched. No other column is touched, so a later Restore round-trips.
func (r *LeadRepository) Archive(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Lead{}).
		Where("id = ? AND archived_at IS NULL", id).
		UpdateColumn("archived_at", at)
	return result.RowsAffected > 0, result.Error
}

// Restore clears archived_at on an archived lead.
func (r *LeadRepository) Restore(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Lead{}).
		Where("id = ? AND archived_at IS NOT NULL", id).
		UpdateColumn("archived_at", nil)
	return result.RowsAffected > 0, result.Error
}

func (r *LeadRepository) Assign(ctx context.Context, id, profileID string) error {
	result := r.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", id).Update("assigned_to", profileID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the row. It reports false when nothing was deleted.
func (r *LeadRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Lead{})
	return result.RowsAffected > 0, result.Error
}

type statsRow struct {
	Status   string
	Archived bool
	Total    int64
}

// Stats counts visible leads. ByStatus covers active leads only.
func (r *LeadRepository) Stats(ctx context.Context, scope access.Scope) (*models.LeadStats, error) {
	var rows []statsRow
	err := r.db.WithContext(ctx).Model(&models.Lead{}).
		Scopes(VisibleTo(scope)).
		Select("status, archived_at IS NOT NULL AS archived, COUNT(*) AS total").
		Group("status, archived_at IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return foldStats(rows), nil
}

func foldStats(rows []statsRow) *models.LeadStats {
	stats := &models.LeadStats{ByStatus: map[string]int64{}}
	for _, row := range rows {
		if row.Archived {
			stats.Archived += row.Total
			continue
		}
		stats.Active += row.Total
		stats.ByStatus[row.Status] += row.Total
	}
	return stats
}
