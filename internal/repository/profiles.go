package repository

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// SubordinateIDs returns agents whose team_lead_id is teamLeadID.
func (r *ProfileRepository) SubordinateIDs(ctx context.Context, teamLeadID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("role = ? AND team_lead_id = ?", models.RoleAgent, teamLeadID).
		Order("created_at").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
