package models

import "time"

// Contact is created from a lead by conversion. The source lead is left untouched.
type Contact struct {
	ID           string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SourceLeadID *string   `gorm:"type:uuid;index" json:"source_lead_id"`
	OwnerID      *string   `gorm:"type:uuid;index" json:"owner_id"`
	ContactType  LeadType  `gorm:"size:10;not null" json:"contact_type"`
	FirstName    string    `gorm:"size:100" json:"first_name"`
	LastName     string    `gorm:"size:100" json:"last_name"`
	Email        string    `gorm:"size:255" json:"email"`
	Phone        string    `gorm:"size:50" json:"phone"`
	Notes        string    `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
