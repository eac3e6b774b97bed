package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
	"github.com/trezcool/skripsi/core/progress"
	"github.com/trezcool/skripsi/core/thesis"
	"github.com/trezcool/skripsi/core/user"
	sqlxrepos "github.com/trezcool/skripsi/storage/database/sqlx"
	testutil "github.com/trezcool/skripsi/tests"
)

func TestUserRepository(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(db)

	t0 := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	budi := testutil.CreateUser(t, repo, "Budi", "budi", "budi@kampus.ac.id", "secret", []string{user.RoleStudent}, true, t0)
	sari := testutil.CreateUser(t, repo, "Sari", "sari", "sari@kampus.ac.id", "", []string{user.RoleLecturer}, true, t0.Add(time.Hour))
	testutil.CreateUser(t, repo, "Agus", "agus", "", "", []string{user.RoleLecturer}, false, t0.Add(2*time.Hour))

	t.Run("duplicate", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, user.User{Username: "budi", CreatedAt: t0, UpdatedAt: t0})
		assert.Equal(t, user.ErrUserExists, errors.Cause(err))
	})

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrUsernameExists, repo.CheckUsernameUniqueness(ctx, "budi", ""))
		assert.Equal(t, user.ErrEmailExists, repo.CheckUsernameUniqueness(ctx, "new", "sari@kampus.ac.id"))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "budi", "budi@kampus.ac.id", budi))
	})

	t.Run("get", func(t *testing.T) {
		usr, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{"sari@kampus.ac.id"}})
		require.NoError(t, err)
		assert.Equal(t, sari.ID, usr.ID)
		assert.Equal(t, []string{user.RoleLecturer}, usr.Roles)

		_, err = repo.GetUser(ctx, user.GetFilter{ID: "not-a-uuid"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		active := true
		users, err := repo.QueryUsers(ctx, &user.QueryFilter{Roles: []string{user.RoleLecturer}, IsActive: &active}, nil)
		require.NoError(t, err)
		if assert.Len(t, users, 1) {
			assert.Equal(t, sari.ID, users[0].ID)
		}

		users, err = repo.QueryUsers(ctx, nil, []core.DBOrdering{{Field: "name", Ascending: true}})
		require.NoError(t, err)
		if assert.Len(t, users, 3) {
			assert.Equal(t, "Agus", users[0].Name)
		}
	})

	t.Run("update & delete", func(t *testing.T) {
		budi.LastLogin = t0.Add(time.Minute)
		_, err := repo.UpdateUser(ctx, budi)
		require.NoError(t, err)

		usr, err := repo.GetUser(ctx, user.GetFilter{ID: budi.ID})
		require.NoError(t, err)
		assert.True(t, budi.LastLogin.Equal(usr.LastLogin))
		assert.NoError(t, usr.CheckPassword("secret"))

		n, err := repo.DeleteUsersByID(ctx, budi.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestThesisRepository_QueryProgressFacts(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()
	users := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewThesisRepository(db)

	now := time.Now().UTC().Truncate(time.Millisecond)
	student := testutil.CreateUser(t, users, "Budi", "budi", "budi@kampus.ac.id", "", []string{user.RoleStudent}, true)
	primary := testutil.CreateUser(t, users, "Sari", "sari", "sari@kampus.ac.id", "", []string{user.RoleLecturer}, true)
	secondary := testutil.CreateUser(t, users, "Agus", "agus", "agus@kampus.ac.id", "", []string{user.RoleLecturer}, true)

	p, err := repo.CreateProposal(ctx, thesis.Proposal{
		StudentID:             student.ID,
		Title:                 "Sistem Monitoring Skripsi",
		PrimarySupervisorID:   primary.ID,
		SecondarySupervisorID: secondary.ID,
		Status:                thesis.ProposalAccepted,
		CreatedAt:             now,
		UpdatedAt:             now,
	})
	require.NoError(t, err)

	// counted: attended & approved
	for i, sup := range []string{primary.ID, primary.ID, secondary.ID} {
		_, err = repo.CreateGuidanceSession(ctx, thesis.GuidanceSession{
			ProposalID: p.ID, SupervisorID: sup, HeldOn: now.Add(-time.Duration(i) * time.Hour),
			Topic: "Bab 1", Attended: true, Status: thesis.GuidanceApproved, CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)
	}
	// not counted: missed, flagged for revision
	_, err = repo.CreateGuidanceSession(ctx, thesis.GuidanceSession{
		ProposalID: p.ID, SupervisorID: primary.ID, HeldOn: now, Topic: "Bab 2",
		Status: thesis.GuidanceApproved, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	_, err = repo.CreateGuidanceSession(ctx, thesis.GuidanceSession{
		ProposalID: p.ID, SupervisorID: secondary.ID, HeldOn: now, Topic: "Bab 3",
		Attended: true, Status: thesis.GuidanceRevision, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	_, err = repo.CreateSeminarRequest(ctx, thesis.SeminarRequest{
		ProposalID: p.ID, Status: thesis.SeminarRejected, CreatedAt: now.Add(-time.Hour), UpdatedAt: now,
	})
	require.NoError(t, err)
	latest, err := repo.CreateSeminarRequest(ctx, thesis.SeminarRequest{
		ProposalID: p.ID, Status: thesis.SeminarAwaitingApproval, ApprovedByPrimary: true, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	doc, err := repo.SaveDocument(ctx, thesis.SeminarDocument{
		ProposalID: p.ID, Kind: thesis.DocumentDraft, FilePath: "a.pdf", Status: thesis.DocumentPending,
		UploadedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	// re-upload replaces the same row
	again, err := repo.SaveDocument(ctx, thesis.SeminarDocument{
		ProposalID: p.ID, Kind: thesis.DocumentDraft, FilePath: "b.pdf", Status: thesis.DocumentPending,
		UploadedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again.ID)

	verifiedAt := now
	again.Status = thesis.DocumentVerified
	again.VerifiedBy = primary.ID
	again.VerifiedAt = &verifiedAt
	_, err = repo.UpdateDocument(ctx, again)
	require.NoError(t, err)

	_, err = repo.SaveDocument(ctx, thesis.SeminarDocument{
		ProposalID: p.ID, Kind: thesis.DocumentGuidanceCard, FilePath: "c.pdf", Status: thesis.DocumentPending,
		UploadedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	facts, err := repo.QueryProgressFacts(ctx, thesis.ProposalFilter{SupervisorID: secondary.ID})
	require.NoError(t, err)
	require.Len(t, facts, 1)

	f := facts[0]
	assert.Equal(t, p.ID, f.Proposal.ID)
	assert.Equal(t, 2, f.Tally.Primary)
	assert.Equal(t, 1, f.Tally.Secondary)

	// the tally is the eligibility helper's count over the stored sessions
	stored, err := repo.QueryGuidanceSessions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored, 5)
	sessions := make([]progress.Session, 0, len(stored))
	for _, g := range stored {
		sessions = append(sessions, g.Session())
	}
	assert.Equal(t, progress.CountSessions(sessions, p.Supervisors()), f.Tally)
	assert.Equal(t, 2, f.UploadedDocs)
	assert.Equal(t, 1, f.VerifiedDocs)
	assert.False(t, f.HasDefense)
	if assert.NotNil(t, f.LatestSeminar) {
		assert.Equal(t, latest.ID, f.LatestSeminar.ID)
		assert.True(t, f.LatestSeminar.ApprovedByPrimary)
	}

	_, err = repo.CreateDefenseRequest(ctx, thesis.DefenseRequest{ProposalID: p.ID, Status: thesis.DefenseRequested, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	_, err = repo.CreateDefenseRequest(ctx, thesis.DefenseRequest{ProposalID: p.ID, Status: thesis.DefenseRequested, CreatedAt: now, UpdatedAt: now})
	assert.Equal(t, thesis.ErrInvalidTransition, err)

	facts, err = repo.QueryProgressFacts(ctx, thesis.ProposalFilter{IDs: []string{p.ID}})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.True(t, facts[0].HasDefense)

	facts, err = repo.QueryProgressFacts(ctx, thesis.ProposalFilter{Statuses: []string{thesis.ProposalRejected}})
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestNotificationRepository_MarkRead(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, sqlxrepos.NewUserRepository(db), "Budi", "budi", "", "", []string{user.RoleStudent}, true)
	repo := sqlxrepos.NewNotificationRepository(db)

	now := time.Now().UTC()
	notes, err := repo.CreateNotifications(ctx,
		notification.Notification{UserID: usr.ID, Title: "satu", CreatedAt: now.Add(-time.Minute)},
		notification.Notification{UserID: usr.ID, Title: "dua", CreatedAt: now},
	)
	require.NoError(t, err)
	require.Len(t, notes, 2)

	n, err := repo.MarkRead(ctx, usr.ID, now, notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// already read still matches
	n, err = repo.MarkRead(ctx, usr.ID, now, notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	unread, err := repo.CountUnread(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	listed, err := repo.QueryNotifications(ctx, notification.QueryFilter{UserID: usr.ID, Limit: 1})
	require.NoError(t, err)
	if assert.Len(t, listed, 1) {
		assert.Equal(t, "dua", listed[0].Title)
	}

	n, err = repo.MarkRead(ctx, usr.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
