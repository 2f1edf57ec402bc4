package models

import (
	"time"

	"gorm.io/datatypes"
)

type LeadType string

const (
	LeadTypeBuyer  LeadType = "buyer"
	LeadTypeSeller LeadType = "seller"
	LeadTypeBoth   LeadType = "both"
)

func (t LeadType) Valid() bool {
	switch t {
	case LeadTypeBuyer, LeadTypeSeller, LeadTypeBoth:
		return true
	}
	return false
}

// DefaultLeadStatus is the first pipeline stage.
const DefaultLeadStatus = "new"

// Lead is a prospective client. A nil ArchivedAt means the lead is active.
type Lead struct {
	ID          string         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	LeadType    LeadType       `gorm:"size:10;not null" json:"lead_type"`
	Status      string         `gorm:"size:50;not null;default:'new';index" json:"status"`
	AssignedTo  *string        `gorm:"type:uuid;index" json:"assigned_to"`
	ArchivedAt  *time.Time     `gorm:"index" json:"archived_at"`
	FirstName   string         `gorm:"size:100" json:"first_name"`
	LastName    string         `gorm:"size:100" json:"last_name"`
	Email       string         `gorm:"size:255" json:"email"`
	Phone       string         `gorm:"size:50" json:"phone"`
	Source      string         `gorm:"size:50" json:"source"`
	Notes       string         `gorm:"type:text" json:"notes"`
	BudgetMin   *float64       `json:"budget_min"`
	BudgetMax   *float64       `json:"budget_max"`
	Preferences datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"preferences"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (l *Lead) Archived() bool {
	return l.ArchivedAt != nil
}

// LeadStats aggregates the leads visible to one profile.
type LeadStats struct {
	Active   int64            `json:"active"`
	Archived int64            `json:"archived"`
	ByStatus map[string]int64 `json:"by_status"`
}
