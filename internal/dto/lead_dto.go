package dto

import "github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"

type AssignLeadRequest struct {
	AssigneeID string `json:"assignee_id"`
}

type LeadListResponse struct {
	Leads    []models.Lead `json:"leads"`
	Archived bool          `json:"archived"`
	Count    int           `json:"count"`
}

type ConvertLeadResponse struct {
	Contact *models.Contact `json:"contact"`
}
