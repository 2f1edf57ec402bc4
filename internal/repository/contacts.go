package repository

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"gorm.io/gorm"
)

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, c *models.Contact) error {
	return r.db.WithContext(ctx).Create(c).Error
}
