package repository

import (
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/access"
	"gorm.io/gorm"
)

// VisibleTo returns a GORM scope that restricts leads to the owners in s.
func VisibleTo(s access.Scope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case s.Unrestricted:
			return db
		case len(s.OwnerIDs) == 0:
			return db.Where("1 = 0")
		case len(s.OwnerIDs) == 1:
			return db.Where("assigned_to = ?", s.OwnerIDs[0])
		default:
			return db.Where("assigned_to IN ?", s.OwnerIDs)
		}
	}
}

// ArchiveState selects either active or archived leads, never both.
func ArchiveState(archived bool) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if archived {
			return db.Where("archived_at IS NOT NULL")
		}
		return db.Where("archived_at IS NULL")
	}
}

// ListingOrder orders active leads by creation and archived leads by archive time, newest first.
func ListingOrder(archived bool) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if archived {
			return db.Order("archived_at DESC")
		}
		return db.Order("created_at DESC")
	}
}
