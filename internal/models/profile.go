package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAgent    Role = "agent"
	RoleTeamLead Role = "team_lead"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAgent, RoleTeamLead, RoleAdmin:
		return true
	}
	return false
}

// Profile is the acting principal. TeamLeadID is only meaningful for agents.
type Profile struct {
	ID         string         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email      string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password   string         `gorm:"not null" json:"-"`
	FullName   string         `gorm:"size:255" json:"full_name"`
	Role       Role           `gorm:"size:20;not null;default:'agent';index" json:"role"`
	TeamLeadID *string        `gorm:"type:uuid;index" json:"team_lead_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
