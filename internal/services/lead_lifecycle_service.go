package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/cache"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/notify"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type LeadWriter interface {
	FindByID(ctx context.Context, id string) (*models.Lead, error)
	Create(ctx context.Context, lead *models.Lead) error
	Update(ctx context.Context, id string, fields map[string]any) error
	Archive(ctx context.Context, id string, at time.Time) (bool, error)
	Restore(ctx context.Context, id string) (bool, error)
	Assign(ctx context.Context, id, profileID string) error
	Delete(ctx context.Context, id string) (bool, error)
}

type ProfileLookup interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

type ContactCreator interface {
	Create(ctx context.Context, contact *models.Contact) error
}

type CreateLeadInput struct {
	LeadType    models.LeadType `json:"lead_type"`
	Status      string          `json:"status"`
	AssignedTo  *string         `json:"assigned_to"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Source      string          `json:"source"`
	Notes       string          `json:"notes"`
	BudgetMin   *float64        `json:"budget_min"`
	BudgetMax   *float64        `json:"budget_max"`
	Preferences datatypes.JSON  `json:"preferences"`
}

// UpdateLeadInput is a partial edit. Nil fields are left alone. Ownership and
// archive state have their own operations.
type UpdateLeadInput struct {
	LeadType    *models.LeadType `json:"lead_type"`
	Status      *string          `json:"status"`
	FirstName   *string          `json:"first_name"`
	LastName    *string          `json:"last_name"`
	Email       *string          `json:"email"`
	Phone       *string          `json:"phone"`
	Source      *string          `json:"source"`
	Notes       *string          `json:"notes"`
	BudgetMin   *float64         `json:"budget_min"`
	BudgetMax   *float64         `json:"budget_max"`
	Preferences datatypes.JSON   `json:"preferences"`
}

// LeadLifecycleService applies guarded state transitions to leads. Every
// successful mutation invalidates the lead cache. Mutations detach from the
// caller's cancellation and always run to completion.
type LeadLifecycleService struct {
	leads       LeadWriter
	profiles    ProfileLookup
	scopes      ScopeResolver
	contacts    ContactCreator
	invalidator cache.Invalidator
	dispatcher  notify.Dispatcher
	logger      *slog.Logger
	now         func() time.Time
}

func NewLeadLifecycleService(
	leads LeadWriter,
	profiles ProfileLookup,
	scopes ScopeResolver,
	contacts ContactCreator,
	invalidator cache.Invalidator,
	dispatcher notify.Dispatcher,
	logger *slog.Logger,
) *LeadLifecycleService {
	if logger == nil {
		logger = slog.Default()
	}
	if dispatcher == nil {
		dispatcher = notify.NopDispatcher{}
	}
	return &LeadLifecycleService{
		leads:       leads,
		profiles:    profiles,
		scopes:      scopes,
		contacts:    contacts,
		invalidator: invalidator,
		dispatcher:  dispatcher,
		logger:      logger.With(slog.String("component", "lead_lifecycle")),
		now:         time.Now,
	}
}

// timestamp is truncated to the row store's microsecond precision.
func (s *LeadLifecycleService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *LeadLifecycleService) Create(ctx context.Context, profile *models.Profile, in CreateLeadInput) (lead *models.Lead, err error) {
	defer func() { recordOperation("create", err) }()
	ctx = context.WithoutCancel(ctx)

	if !in.LeadType.Valid() {
		return nil, apperr.Validation("lead_type must be one of buyer, seller, both")
	}

	assignee, err := s.initialAssignee(ctx, profile, in.AssignedTo)
	if err != nil {
		return nil, err
	}

	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = models.DefaultLeadStatus
	}
	now := s.timestamp()
	lead = &models.Lead{
		ID:          uuid.NewString(),
		LeadType:    in.LeadType,
		Status:      status,
		AssignedTo:  assignee,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Phone:       in.Phone,
		Source:      in.Source,
		Notes:       in.Notes,
		BudgetMin:   in.BudgetMin,
		BudgetMax:   in.BudgetMax,
		Preferences: in.Preferences,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(lead.Preferences) == 0 {
		lead.Preferences = datatypes.JSON("{}")
	}

	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, apperr.Dependency(err, "failed to create lead")
	}
	s.invalidator.InvalidateLeadsRelated()

	s.logger.Info("lead created", "lead_id", lead.ID, "profile_id", profile.ID)
	return lead, nil
}

// initialAssignee defaults non-admins to themselves. Admins may leave a lead unassigned.
func (s *LeadLifecycleService) initialAssignee(ctx context.Context, profile *models.Profile, requested *string) (*string, error) {
	if requested == nil || *requested == "" {
		if profile.Role == models.RoleAdmin {
			return nil, nil
		}
		self := profile.ID
		return &self, nil
	}

	target := *requested
	if err := s.checkAssignee(ctx, profile, target); err != nil {
		return nil, err
	}
	return &target, nil
}

// checkAssignee enforces who profile may hand a lead to.
func (s *LeadLifecycleService) checkAssignee(ctx context.Context, profile *models.Profile, target string) error {
	switch profile.Role {
	case models.RoleAdmin:
		assignee, err := s.profiles.FindByID(ctx, target)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Validation("assignee does not exist")
		}
		if err != nil {
			return apperr.Dependency(err, "failed to load assignee")
		}
		if !assignee.Role.Valid() {
			return apperr.Dependency(errors.New("assignee has unknown role "+string(assignee.Role)), "invalid profile row")
		}
		return nil
	case models.RoleTeamLead:
		scope, err := s.scopes.ScopeFor(ctx, profile)
		if err != nil {
			return err
		}
		if !scope.Includes(target) {
			return apperr.Authorization("assignee is not on your team")
		}
		return nil
	default:
		if target != profile.ID {
			return apperr.Authorization("agents can only own their own leads")
		}
		return nil
	}
}

func (s *LeadLifecycleService) Update(ctx context.Context, profile *models.Profile, id string, in UpdateLeadInput) (lead *models.Lead, err error) {
	defer func() { recordOperation("update", err) }()
	ctx = context.WithoutCancel(ctx)

	fields, err := updateFields(in)
	if err != nil {
		return nil, err
	}

	if _, err := s.loadInScope(ctx, profile, id); err != nil {
		return nil, err
	}

	if err := s.leads.Update(ctx, id, fields); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, apperr.Dependency(err, "failed to update lead")
	}
	s.invalidator.InvalidateLeadsRelated()

	lead, err = s.leads.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to reload lead")
	}
	s.logger.Info("lead updated", "lead_id", id, "profile_id", profile.ID, "fields", len(fields))
	return lead, nil
}

func updateFields(in UpdateLeadInput) (map[string]any, error) {
	fields := map[string]any{}
	if in.LeadType != nil {
		if !in.LeadType.Valid() {
			return nil, apperr.Validation("lead_type must be one of buyer, seller, both")
		}
		fields["lead_type"] = *in.LeadType
	}
	if in.Status != nil {
		status := strings.TrimSpace(*in.Status)
		if status == "" {
			return nil, apperr.Validation("status cannot be empty")
		}
		fields["status"] = status
	}
	setString := func(column string, v *string) {
		if v != nil {
			fields[column] = *v
		}
	}
	setString("first_name", in.FirstName)
	setString("last_name", in.LastName)
	setString("email", in.Email)
	setString("phone", in.Phone)
	setString("source", in.Source)
	setString("notes", in.Notes)
	if in.BudgetMin != nil {
		fields["budget_min"] = *in.BudgetMin
	}
	if in.BudgetMax != nil {
		fields["budget_max"] = *in.BudgetMax
	}
	if len(in.Preferences) > 0 {
		fields["preferences"] = in.Preferences
	}

	if len(fields) == 0 {
		return nil, apperr.Validation("no fields to update")
	}
	return fields, nil
}

// Archive moves an active lead to Archived.
func (s *LeadLifecycleService) Archive(ctx context.Context, profile *models.Profile, id string) (lead *models.Lead, err error) {
	defer func() { recordOperation("archive", err) }()
	ctx = context.WithoutCancel(ctx)

	lead, err = s.loadInScope(ctx, profile, id)
	if err != nil {
		return nil, err
	}
	if lead.Archived() {
		return nil, apperr.InvalidState("lead is already archived")
	}

	at := s.timestamp()
	ok, err := s.leads.Archive(ctx, id, at)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to archive lead")
	}
	if !ok {
		// Archived or deleted by someone else since the read.
		return nil, apperr.InvalidState("lead is no longer active")
	}
	s.invalidator.InvalidateLeadsRelated()

	lead.ArchivedAt = &at
	s.logger.Info("lead archived", "lead_id", id, "profile_id", profile.ID)
	return lead, nil
}

// Restore moves an archived lead back to Active. Restoring an active lead is an error.
func (s *LeadLifecycleService) Restore(ctx context.Context, profile *models.Profile, id string) (lead *models.Lead, err error) {
	defer func() { recordOperation("restore", err) }()
	ctx = context.WithoutCancel(ctx)

	lead, err = s.loadInScope(ctx, profile, id)
	if err != nil {
		return nil, err
	}
	if !lead.Archived() {
		return nil, apperr.InvalidState("lead is not archived")
	}

	ok, err := s.leads.Restore(ctx, id)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to restore lead")
	}
	if !ok {
		return nil, apperr.InvalidState("lead is no longer archived")
	}
	s.invalidator.InvalidateLeadsRelated()

	lead.ArchivedAt = nil
	s.logger.Info("lead restored", "lead_id", id, "profile_id", profile.ID)
	return lead, nil
}

// PermanentlyDelete removes the row. A missing lead reports NotFound and
// leaves the cache untouched.
func (s *LeadLifecycleService) PermanentlyDelete(ctx context.Context, profile *models.Profile, id string) (err error) {
	defer func() { recordOperation("delete", err) }()
	ctx = context.WithoutCancel(ctx)

	lead, err := s.loadInScope(ctx, profile, id)
	if err != nil {
		return err
	}

	ok, err := s.leads.Delete(ctx, id)
	if err != nil {
		return apperr.Dependency(err, "failed to delete lead")
	}
	if !ok {
		return apperr.NotFound("lead not found")
	}
	s.invalidator.InvalidateLeadsRelated()

	s.logger.Info("lead deleted", "lead_id", id, "profile_id", profile.ID, "was_archived", lead.Archived())
	return nil
}

// Assign hands the lead to targetID. Agents may never assign. Team leads may
// assign to themselves or their agents; admins to any existing profile.
// The notification afterwards is best effort.
func (s *LeadLifecycleService) Assign(ctx context.Context, profile *models.Profile, id, targetID string) (lead *models.Lead, err error) {
	defer func() { recordOperation("assign", err) }()
	ctx = context.WithoutCancel(ctx)

	if profile.Role != models.RoleTeamLead && profile.Role != models.RoleAdmin {
		return nil, apperr.Authorization("only team leads and admins can assign leads")
	}
	if targetID == "" {
		return nil, apperr.Validation("assignee is required")
	}
	if err := s.checkAssignee(ctx, profile, targetID); err != nil {
		return nil, err
	}

	lead, err = s.loadInScope(ctx, profile, id)
	if err != nil {
		return nil, err
	}

	if err := s.leads.Assign(ctx, id, targetID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, apperr.Dependency(err, "failed to assign lead")
	}
	s.invalidator.InvalidateLeadsRelated()

	assignedAt := s.timestamp()
	lead.AssignedTo = &targetID
	lead.UpdatedAt = assignedAt
	s.logger.Info("lead assigned", "lead_id", id, "profile_id", profile.ID, "assignee_id", targetID)

	if targetID != profile.ID {
		s.notifyAssignment(ctx, lead, profile, assignedAt)
	}
	return lead, nil
}

func (s *LeadLifecycleService) notifyAssignment(ctx context.Context, lead *models.Lead, by *models.Profile, at time.Time) {
	notice := notify.AssignmentNotice{
		LeadID:     lead.ID,
		LeadName:   strings.TrimSpace(lead.FirstName + " " + lead.LastName),
		AssigneeID: *lead.AssignedTo,
		AssignedBy: by.ID,
		AssignedAt: at,
	}
	if err := s.dispatcher.NotifyAssignment(ctx, notice); err != nil {
		s.logger.Warn("assignment notification failed", "lead_id", lead.ID, "assignee_id", notice.AssigneeID, "error", err)
	}
}

// Convert copies a lead into a new contact. The lead itself is not changed.
func (s *LeadLifecycleService) Convert(ctx context.Context, profile *models.Profile, id string) (contact *models.Contact, err error) {
	defer func() { recordOperation("convert", err) }()
	ctx = context.WithoutCancel(ctx)

	lead, err := s.loadInScope(ctx, profile, id)
	if err != nil {
		return nil, err
	}

	owner := lead.AssignedTo
	if owner == nil {
		self := profile.ID
		owner = &self
	}
	sourceID := lead.ID
	contact = &models.Contact{
		ID:           uuid.NewString(),
		SourceLeadID: &sourceID,
		OwnerID:      owner,
		ContactType:  lead.LeadType,
		FirstName:    lead.FirstName,
		LastName:     lead.LastName,
		Email:        lead.Email,
		Phone:        lead.Phone,
		Notes:        lead.Notes,
		CreatedAt:    s.timestamp(),
	}
	contact.UpdatedAt = contact.CreatedAt

	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, apperr.Dependency(err, "failed to create contact")
	}

	s.logger.Info("lead converted", "lead_id", id, "profile_id", profile.ID, "contact_id", contact.ID)
	return contact, nil
}

// loadInScope fetches the lead and checks it against profile's scope. The
// scope is rebuilt on every call.
func (s *LeadLifecycleService) loadInScope(ctx context.Context, profile *models.Profile, id string) (*models.Lead, error) {
	lead, err := s.leads.FindByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to load lead")
	}

	scope, err := s.scopes.ScopeFor(ctx, profile)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(lead.AssignedTo) {
		return nil, apperr.Authorization("lead is outside your visibility scope")
	}
	return lead, nil
}
