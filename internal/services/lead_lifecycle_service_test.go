package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/cache"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var bg = context.Background()

func TestArchiveHidesLeadDespiteWarmCache(t *testing.T) {
	f := newFixture(t, teamLeads()...)
	require.Contains(t, list(t, f, "a1", false), "L1")
	require.Contains(t, list(t, f, "tl", false), "L1")

	archived, err := f.lifecycle.Archive(bg, f.profile("a1"), "L1")
	require.NoError(t, err)
	require.NotNil(t, archived.ArchivedAt)

	assert.NotContains(t, list(t, f, "a1", false), "L1")
	assert.NotContains(t, list(t, f, "tl", false), "L1")
	assert.Contains(t, list(t, f, "a1", true), "L1")
	assert.Equal(t, 1, f.inval.calls)
}

func TestArchiveTwiceIsInvalidState(t *testing.T) {
	f := newFixture(t, teamLeads()...)

	first, err := f.lifecycle.Archive(bg, f.profile("a1"), "L1")
	require.NoError(t, err)

	f.lifecycle.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = f.lifecycle.Archive(bg, f.profile("a1"), "L1")
	requireCode(t, err, apperr.ErrInvalidState)

	row, _ := f.leads.row("L1")
	assert.Equal(t, *first.ArchivedAt, *row.ArchivedAt)
	assert.Equal(t, 1, f.inval.calls)
}

func TestArchiveThenRestoreRoundTrips(t *testing.T) {
	f := newFixture(t, teamLeads()...)
	before, _ := f.leads.row("L1")

	_, err := f.lifecycle.Archive(bg, f.profile("tl"), "L1")
	require.NoError(t, err)
	restored, err := f.lifecycle.Restore(bg, f.profile("tl"), "L1")
	require.NoError(t, err)

	after, _ := f.leads.row("L1")
	assert.Nil(t, restored.ArchivedAt)
	assert.Equal(t, before, after)
	assert.Equal(t, 2, f.inval.calls)
}

func TestRestoreActiveLeadIsInvalidState(t *testing.T) {
	f := newFixture(t, teamLeads()...)

	_, err := f.lifecycle.Restore(bg, f.profile("a1"), "L1")

	requireCode(t, err, apperr.ErrInvalidState)
	assert.Equal(t, 0, f.inval.calls)
}

func TestLifecycleOutOfScope(t *testing.T) {
	f := newFixture(t, teamLeads()...)
	p := f.profile("a2")

	_, err := f.lifecycle.Archive(bg, p, "L1")
	requireCode(t, err, apperr.ErrAuthorization)

	_, err = f.lifecycle.Restore(bg, p, "L6")
	requireCode(t, err, apperr.ErrAuthorization)

	err = f.lifecycle.PermanentlyDelete(bg, p, "L6")
	requireCode(t, err, apperr.ErrAuthorization)

	_, err = f.lifecycle.Convert(bg, p, "L1")
	requireCode(t, err, apperr.ErrAuthorization)

	// Unassigned leads belong to admins only.
	_, err = f.lifecycle.Archive(bg, f.profile("tl"), "L4")
	requireCode(t, err, apperr.ErrAuthorization)

	assert.Equal(t, 0, f.inval.calls)
	row, _ := f.leads.row("L1")
	assert.Nil(t, row.ArchivedAt)
}

func TestLifecycleNotFound(t *testing.T) {
	f := newFixture(t, teamLeads()...)

	_, err := f.lifecycle.Archive(bg, f.profile("admin"), "missing")
	requireCode(t, err, apperr.ErrNotFound)

	_, err = f.lifecycle.Restore(bg, f.profile("admin"), "missing")
	requireCode(t, err, apperr.ErrNotFound)
}

func TestPermanentlyDeleteMissingLeadSkipsInvalidation(t *testing.T) {
	f := newFixture(t, teamLeads()...)
	list(t, f, "a1", false)

	err := f.lifecycle.PermanentlyDelete(bg, f.profile("admin"), "missing")

	requireCode(t, err, apperr.ErrNotFound)
	assert.Equal(t, 0, f.inval.calls)
	_, _, ok := f.store.Get(cache.LeadsKey("a1", false))
	assert.True(t, ok)
}

func TestPermanentlyDeleteArchivedOrActive(t *testing.T) {
	f := newFixture(t, teamLeads()...)

	require.NoError(t, f.lifecycle.PermanentlyDelete(bg, f.profile("a1"), "L6"))
	require.NoError(t, f.lifecycle.PermanentlyDelete(bg, f.profile("a1"), "L1"))

	_, ok := f.leads.row("L6")
	assert.False(t, ok)
	_, ok = f.leads.row("L1")
	assert.False(t, ok)
	assert.Equal(t, 2, f.inval.calls)

	err := f.lifecycle.PermanentlyDelete(bg, f.profile("a1"), "L6")
	requireCode(t, err, apperr.ErrNotFound)
}

func TestAssignByAgentAlwaysUnauthorized(t *testing.T) {
	f := newFixture(t, teamLeads()...)

	for _, tc := range []struct{ lead, target string }{
		{"L1", "a1"},
		{"missing", "a1"},
		{"L1", "nobody"},
		{"", ""},
	} {
		_, err := f.lifecycle.Assign(bg, f.profile("a1"), tc.lead, tc.target)
		requireCode(t, err, apperr.ErrAuthorization)
	}
	f.dispatcher.AssertNotCalled(t, "NotifyAssignment", mock.Anything, mock.Anything)
}

func TestAssignTeamLeadOutsideTeam(t *testing.T) {
	f := newFixture(t, teamLeads()...)

	_, err := f.lifecycle.Assign(bg, f.profile("tl"), "L1", "a3")
	requireCode(t, err, apperr.ErrAuthorization)

	_, err = f.lifecycle.Assign(bg, f.profile("tl"), "L1", "a2")
	requireCode(t, err, apperr.ErrAuthorization)

	row, _ := f.leads.row("L1")
	assert.Equal(t, "a1", *row.AssignedTo)
}

func TestAssignTeamLeadLeadOutsideScope(t *testing.T) {
	f := newFixture(t, teamLeads()...)

	_, err := f.lifecycle.Assign(bg, f.profile("tl"), "L2", "a1")

	requireCode(t, err, apperr.ErrAuthorization)
}

func TestAssignTeamLeadToSubordinateNotifies(t *testing.T) {
	f := newFixture(t, teamLeads()...)
	list(t, f, "a1", false)
	f.dispatcher.On("NotifyAssignment", mock.Anything, mock.MatchedBy(func(n notify.AssignmentNotice) bool {
		return n.LeadID == "L3" && n.AssigneeID == "a1" && n.AssignedBy == "tl" && n.LeadName == "Lead L3"
	})).Return(nil).Once()

	l, err := f.lifecycle.Assign(bg, f.profile("tl"), "L3", "a1")

	require.NoError(t, err)
	assert.Equal(t, "a1", *l.AssignedTo)
	assert.Contains(t, list(t, f, "a1", false), "L3")
	f.dispatcher.AssertExpectations(t)
}

func TestAssignNotificationFailureDoesNotFail(t *testing.T) {
	f := newFixture(t, teamLeads()...)
	f.dispatcher.On("NotifyAssignment", mock.Anything, mock.Anything).Return(errors.New("broker unreachable"))

	l, err := f.lifecycle.Assign(bg, f.profile("admin"), "L4", "a3")

	require.NoError(t, err)
	assert.Equal(t, "a3", *l.AssignedTo)
	row, _ := f.leads.row("L4")
	assert.Equal(t, "a3", *row.AssignedTo)
	assert.Equal(t, 1, f.inval.calls)
}

func TestAssignToSelfSkipsNotification(t *testing.T) {
	f := newFixture(t, teamLeads()...)

	_, err := f.lifecycle.Assign(bg, f.profile("tl"), "L1", "tl")

	require.NoError(t, err)
	f.dispatcher.AssertNotCalled(t, "NotifyAssignment", mock.Anything, mock.Anything)
}

func TestAssignAdminToUnknownProfile(t *testing.T) {
	f := newFixture(t, teamLeads()...)

	_, err := f.lifecycle.Assign(bg, f.profile("admin"), "L1", "ghost")

	requireCode(t, err, apperr.ErrValidation)
}

func TestAssignCompletesAfterCallerCancels(t *testing.T) {
	f := newFixture(t, teamLeads()...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.dispatcher.On("NotifyAssignment", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(nil).Once()

	_, err := f.lifecycle.Assign(ctx, f.profile("admin"), "L1", "a3")

	require.NoError(t, err)
	f.dispatcher.AssertExpectations(t)
}

func TestConvertCopiesLeadWithoutChangingIt(t *testing.T) {
	f := newFixture(t, teamLeads()...)
	before, _ := f.leads.row("L1")

	c, err := f.lifecycle.Convert(bg, f.profile("a1"), "L1")

	require.NoError(t, err)
	require.Len(t, f.contacts.created, 1)
	assert.Equal(t, "L1", *c.SourceLeadID)
	assert.Equal(t, "a1", *c.OwnerID)
	assert.Equal(t, before.Email, c.Email)
	assert.Equal(t, before.LeadType, c.ContactType)

	after, _ := f.leads.row("L1")
	assert.Equal(t, before, after)
	assert.Equal(t, 0, f.inval.calls)
}

func TestConvertContactFailureIsDependency(t *testing.T) {
	f := newFixture(t, teamLeads()...)
	cause := errors.New("contacts table locked")
	f.contacts.err = cause

	_, err := f.lifecycle.Convert(bg, f.profile("a1"), "L1")

	requireCode(t, err, apperr.ErrDependency)
	assert.ErrorIs(t, err, cause)
}

func TestCreateDefaults(t *testing.T) {
	f := newFixture(t)
	list(t, f, "a1", false)

	l, err := f.lifecycle.Create(bg, f.profile("a1"), CreateLeadInput{LeadType: models.LeadTypeSeller, FirstName: "Sam"})

	require.NoError(t, err)
	assert.Equal(t, models.DefaultLeadStatus, l.Status)
	assert.Nil(t, l.ArchivedAt)
	assert.Equal(t, "a1", *l.AssignedTo)
	assert.Equal(t, []string{l.ID}, list(t, f, "a1", false))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.lifecycle.Create(bg, f.profile("a1"), CreateLeadInput{LeadType: "renter"})
	requireCode(t, err, apperr.ErrValidation)

	_, err = f.lifecycle.Create(bg, f.profile("a1"), CreateLeadInput{LeadType: models.LeadTypeBuyer, AssignedTo: ptr("a2")})
	requireCode(t, err, apperr.ErrAuthorization)

	_, err = f.lifecycle.Create(bg, f.profile("tl"), CreateLeadInput{LeadType: models.LeadTypeBuyer, AssignedTo: ptr("a3")})
	requireCode(t, err, apperr.ErrAuthorization)

	l, err := f.lifecycle.Create(bg, f.profile("admin"), CreateLeadInput{LeadType: models.LeadTypeBoth})
	require.NoError(t, err)
	assert.Nil(t, l.AssignedTo)
}

func TestUpdateEditsFieldsAndInvalidates(t *testing.T) {
	f := newFixture(t, teamLeads()...)
	list(t, f, "a1", false)

	l, err := f.lifecycle.Update(bg, f.profile("a1"), "L1", UpdateLeadInput{Status: ptr("qualified")})

	require.NoError(t, err)
	assert.Equal(t, "qualified", l.Status)
	assert.Equal(t, 1, f.inval.calls)
	_, _, ok := f.store.Get(cache.LeadsKey("a1", false))
	assert.False(t, ok)
}

func TestUpdateRejectsEmptyPatch(t *testing.T) {
	f := newFixture(t, teamLeads()...)

	_, err := f.lifecycle.Update(bg, f.profile("a1"), "L1", UpdateLeadInput{})
	requireCode(t, err, apperr.ErrValidation)

	_, err = f.lifecycle.Update(bg, f.profile("a1"), "L1", UpdateLeadInput{Status: ptr("  ")})
	requireCode(t, err, apperr.ErrValidation)
}

func TestLifecycleStoreFailureIsDependency(t *testing.T) {
	f := newFixture(t, teamLeads()...)
	f.leads.failNext = errStore

	_, err := f.lifecycle.Archive(bg, f.profile("a1"), "L1")

	requireCode(t, err, apperr.ErrDependency)
	assert.Equal(t, 0, f.inval.calls)
}
