package handlers

import (
	"context"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/dto"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/services"
	"github.com/gofiber/fiber/v2"
)

type LeadQueries interface {
	ListLeads(ctx context.Context, profile *models.Profile, opts services.ListOptions) ([]models.Lead, error)
	GetLead(ctx context.Context, profile *models.Profile, id string) (*models.Lead, error)
	LeadStats(ctx context.Context, profile *models.Profile) (*models.LeadStats, error)
}

type LeadLifecycle interface {
	Create(ctx context.Context, profile *models.Profile, in services.CreateLeadInput) (*models.Lead, error)
	Update(ctx context.Context, profile *models.Profile, id string, in services.UpdateLeadInput) (*models.Lead, error)
	Archive(ctx context.Context, profile *models.Profile, id string) (*models.Lead, error)
	Restore(ctx context.Context, profile *models.Profile, id string) (*models.Lead, error)
	PermanentlyDelete(ctx context.Context, profile *models.Profile, id string) error
	Assign(ctx context.Context, profile *models.Profile, id, targetID string) (*models.Lead, error)
	Convert(ctx context.Context, profile *models.Profile, id string) (*models.Contact, error)
}

type LeadHandler struct {
	queries   LeadQueries
	lifecycle LeadLifecycle
}

func NewLeadHandler(queries LeadQueries, lifecycle LeadLifecycle) *LeadHandler {
	return &LeadHandler{queries: queries, lifecycle: lifecycle}
}

// acting returns the profile set by middleware.ActingProfile.
func acting(c *fiber.Ctx) (*models.Profile, error) {
	if p := middleware.Profile(c); p != nil {
		return p, nil
	}
	return nil, apperr.Authentication("no authenticated principal")
}

// List serves GET /leads?archived=true|false.
func (h *LeadHandler) List(c *fiber.Ctx) error {
	profile, err := acting(c)
	if err != nil {
		return writeError(c, err)
	}

	archived := false
	if raw := c.Query("archived"); raw != "" {
		archived, err = strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "archived must be true or false")
		}
	}

	leads, err := h.queries.ListLeads(c.UserContext(), profile, services.ListOptions{IncludeArchived: archived})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(dto.LeadListResponse{Leads: leads, Archived: archived, Count: len(leads)})
}

func (h *LeadHandler) Get(c *fiber.Ctx) error {
	profile, err := acting(c)
	if err != nil {
		return writeError(c, err)
	}

	lead, err := h.queries.GetLead(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(lead)
}

func (h *LeadHandler) Stats(c *fiber.Ctx) error {
	profile, err := acting(c)
	if err != nil {
		return writeError(c, err)
	}

	stats, err := h.queries.LeadStats(c.UserContext(), profile)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}

func (h *LeadHandler) Create(c *fiber.Ctx) error {
	profile, err := acting(c)
	if err != nil {
		return writeError(c, err)
	}

	var req services.CreateLeadInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	lead, err := h.lifecycle.Create(c.UserContext(), profile, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lead)
}

func (h *LeadHandler) Update(c *fiber.Ctx) error {
	profile, err := acting(c)
	if err != nil {
		return writeError(c, err)
	}

	var req services.UpdateLeadInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	lead, err := h.lifecycle.Update(c.UserContext(), profile, c.Params("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(lead)
}

func (h *LeadHandler) Archive(c *fiber.Ctx) error {
	profile, err := acting(c)
	if err != nil {
		return writeError(c, err)
	}

	lead, err := h.lifecycle.Archive(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(lead)
}

func (h *LeadHandler) Restore(c *fiber.Ctx) error {
	profile, err := acting(c)
	if err != nil {
		return writeError(c, err)
	}

	lead, err := h.lifecycle.Restore(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(lead)
}

func (h *LeadHandler) Delete(c *fiber.Ctx) error {
	profile, err := acting(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.lifecycle.PermanentlyDelete(c.UserContext(), profile, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *LeadHandler) Assign(c *fiber.Ctx) error {
	profile, err := acting(c)
	if err != nil {
		return writeError(c, err)
	}

	var req dto.AssignLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	lead, err := h.lifecycle.Assign(c.UserContext(), profile, c.Params("id"), req.AssigneeID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(lead)
}

func (h *LeadHandler) Convert(c *fiber.Ctx) error {
	profile, err := acting(c)
	if err != nil {
		return writeError(c, err)
	}

	contact, err := h.lifecycle.Convert(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ConvertLeadResponse{Contact: contact})
}
