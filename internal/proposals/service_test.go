package proposals_test

import (
	"bytes"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/hugh/c4p-portal/internal/api/validation"
	"github.com/hugh/c4p-portal/internal/database/models"
	"github.com/hugh/c4p-portal/internal/proposals"
	"github.com/hugh/c4p-portal/internal/storage"
	"github.com/hugh/c4p-portal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	db    *gorm.DB
	store *storage.Memory
	svc   *proposals.Service
	user  *models.User
}

func setup(t *testing.T, withProfile bool) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	enc := testutil.NewEncryptor(t)
	user := testutil.CreateTestUser(t, db, enc, "Ana Pérez")
	if withProfile {
		testutil.CreateTestProfile(t, db, user)
	}
	store := storage.NewMemory()
	return &env{db: db, store: store, svc: proposals.NewService(db, store), user: user}
}

func doc(name string, size int) *storage.File {
	return &storage.File{Name: name, Size: int64(size), Reader: bytes.NewReader(make([]byte, size))}
}

func (e *env) counts(t *testing.T) (submissions, placements int64) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.Submission{}).Count(&submissions).Error)
	require.NoError(t, e.db.Model(&models.Proposal{}).Count(&placements).Error)
	return
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"Mantenimiento_Predictivo.pdf", "Mantenimiento Predictivo"},
		{"_.pdf", "Propuesta en documento"},
		{"  mi charla .docx", "mi charla"},
		{"charla.final.doc", "charla.final"},
		{".pdf", "Propuesta en documento"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, proposals.TitleFromFilename(tt.filename))
		})
	}
}

func TestSubmit_FansOutToVenues(t *testing.T) {
	e := setup(t, true)
	ctx := testutil.TestContext(t)

	sub, err := e.svc.Submit(ctx, e.user, doc("Mantenimiento_Predictivo.pdf", 2048), []string{
		string(models.VenueCartagena), string(models.VenueSantiago),
	})
	require.NoError(t, err)

	assert.Equal(t, "Mantenimiento Predictivo", sub.Title)
	assert.NotEmpty(t, sub.Reference.String())
	require.Len(t, sub.Placements, 2)
	assert.Equal(t, 1, e.store.Count(), "document is uploaded once")

	var stored []models.Proposal
	require.NoError(t, e.db.Where("user_id = ?", e.user.ID).Order("id").Find(&stored).Error)
	require.Len(t, stored, 2)
	assert.Equal(t, models.VenueCartagena, stored[0].Venue)
	assert.Equal(t, models.VenueSantiago, stored[1].Venue)
	for _, p := range stored {
		assert.Equal(t, models.StatusSubmitted, p.Status)
		assert.Equal(t, sub.DocumentURL, p.SupportingDocURL)
		assert.Equal(t, sub.DocumentURL, p.VideoURL)
		assert.Equal(t, models.PlaceholderSessionType, p.SessionType)
		assert.Equal(t, models.PlaceholderCategory, p.Category)
		assert.Equal(t, models.PlaceholderNarrative, p.LearningOutcome)
		require.NotNil(t, p.SubmissionID)
		assert.Equal(t, sub.ID, *p.SubmissionID)
		require.NotNil(t, p.ReceivedAt)
	}
}

func TestSubmit_DuplicateVenuesCollapse(t *testing.T) {
	e := setup(t, true)

	sub, err := e.svc.Submit(testutil.TestContext(t), e.user, doc("talk.docx", 10), []string{
		string(models.VenueMonterrey), string(models.VenueCartagena), string(models.VenueMonterrey),
	})
	require.NoError(t, err)
	require.Len(t, sub.Placements, 2)
	assert.Equal(t, models.VenueMonterrey, sub.Placements[0].Venue)
	assert.Equal(t, models.VenueCartagena, sub.Placements[1].Venue)
}

func TestSubmit_Rejections(t *testing.T) {
	cartagena := []string{string(models.VenueCartagena)}

	tests := []struct {
		name    string
		profile bool
		file    *storage.File
		venues  []string
		wantErr error
	}{
		{"no profile", false, doc("a.pdf", 10), cartagena, proposals.ErrProfileRequired},
		{"no file", true, nil, cartagena, proposals.ErrMissingFile},
		{"unnamed file", true, &storage.File{Reader: bytes.NewReader(nil)}, cartagena, proposals.ErrMissingFile},
		{"wrong extension", true, doc("talk.txt", 10), cartagena, validation.ErrInvalidFileType},
		{"no venue", true, doc("a.pdf", 10), nil, proposals.ErrNoVenueSelected},
		{"blank venue", true, doc("a.pdf", 10), []string{" "}, proposals.ErrNoVenueSelected},
		{"unknown venue", true, doc("a.pdf", 10), []string{"Perú, Lima"}, proposals.ErrUnknownVenue},
		{"too large", true, doc("a.pdf", 10*1024*1024+1), cartagena, validation.ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t, tt.profile)
			_, err := e.svc.Submit(testutil.TestContext(t), e.user, tt.file, tt.venues)
			assert.ErrorIs(t, err, tt.wantErr)

			subs, placements := e.counts(t)
			assert.Zero(t, subs)
			assert.Zero(t, placements)
			assert.Zero(t, e.store.Count(), "nothing is uploaded for a rejected submission")
		})
	}
}

func TestSubmit_ExactCeiling(t *testing.T) {
	e := setup(t, true)

	_, err := e.svc.Submit(testutil.TestContext(t), e.user, doc("a.pdf", 10*1024*1024), []string{string(models.VenueSantiago)})
	require.NoError(t, err)
}

func TestSubmit_UploadFailure(t *testing.T) {
	e := setup(t, true)
	e.store.Err = errors.New("timeout")

	_, err := e.svc.Submit(testutil.TestContext(t), e.user, doc("a.pdf", 10), []string{string(models.VenueSantiago)})
	assert.ErrorIs(t, err, storage.ErrUploadFailed)

	subs, placements := e.counts(t)
	assert.Zero(t, subs)
	assert.Zero(t, placements)
}

func TestListForUser(t *testing.T) {
	e := setup(t, true)
	ctx := testutil.TestContext(t)
	enc := testutil.NewEncryptor(t)
	other := testutil.CreateTestUser(t, e.db, enc, "Otro")

	first := testutil.CreateTestProposal(t, e.db, e.user, models.VenueCartagena, models.StatusSubmitted, time.Now())
	testutil.CreateTestProposal(t, e.db, other, models.VenueCartagena, models.StatusSubmitted, time.Now())
	second := testutil.CreateTestProposal(t, e.db, e.user, models.VenueSantiago, models.StatusInReview, time.Now())

	list, err := e.svc.ListForUser(ctx, e.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	empty, err := e.svc.ListForUser(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBoard_OrderAndGroups(t *testing.T) {
	e := setup(t, true)
	ctx := testutil.TestContext(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	santiago := testutil.CreateTestProposal(t, e.db, e.user, models.VenueSantiago, models.StatusSubmitted, base)
	cartOld := testutil.CreateTestProposal(t, e.db, e.user, models.VenueCartagena, models.StatusSubmitted, base)
	monterrey := testutil.CreateTestProposal(t, e.db, e.user, models.VenueMonterrey, models.StatusSubmitted, base)
	cartNew := testutil.CreateTestProposal(t, e.db, e.user, models.VenueCartagena, models.StatusSubmitted, base.Add(time.Hour))
	cartSameTime := testutil.CreateTestProposal(t, e.db, e.user, models.VenueCartagena, models.StatusSubmitted, base)
	legacy := testutil.CreateTestProposal(t, e.db, e.user, models.Venue("Virtual"), models.ProposalStatus("Pendiente"), base)

	groups, err := e.svc.Board(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 4)

	assert.Equal(t, models.VenueCartagena, groups[0].Venue)
	require.Len(t, groups[0].Proposals, 3)
	assert.Equal(t, cartNew.ID, groups[0].Proposals[0].ID)
	assert.Equal(t, cartSameTime.ID, groups[0].Proposals[1].ID)
	assert.Equal(t, cartOld.ID, groups[0].Proposals[2].ID)

	assert.Equal(t, monterrey.ID, groups[1].Proposals[0].ID)
	assert.Equal(t, santiago.ID, groups[2].Proposals[0].ID)
	assert.Equal(t, legacy.ID, groups[3].Proposals[0].ID)

	require.NotNil(t, groups[0].Proposals[0].User)
	assert.Equal(t, e.user.Email, groups[0].Proposals[0].User.Email)
}

func TestSortBoard_NilReceivedAtLast(t *testing.T) {
	now := time.Now()
	rows := []models.Proposal{
		{Base: models.Base{ID: 1}, Venue: models.VenueCartagena},
		{Base: models.Base{ID: 2}, Venue: models.VenueCartagena, ReceivedAt: &now},
	}
	proposals.SortBoard(rows)
	assert.Equal(t, uint(2), rows[0].ID)
	assert.Equal(t, uint(1), rows[1].ID)
}

func TestUpdateStatus(t *testing.T) {
	e := setup(t, true)
	ctx := testutil.TestContext(t)
	p := testutil.CreateTestProposal(t, e.db, e.user, models.VenueCartagena, models.StatusSubmitted, time.Now())
	idText := strconvUint

	t.Run("sets status", func(t *testing.T) {
		got, err := e.svc.UpdateStatus(ctx, idText(p.ID), "Aceptada")
		require.NoError(t, err)
		assert.Equal(t, models.StatusAccepted, got.Status)

		var stored models.Proposal
		require.NoError(t, e.db.First(&stored, p.ID).Error)
		assert.Equal(t, models.StatusAccepted, stored.Status)
	})

	t.Run("last write wins", func(t *testing.T) {
		_, err := e.svc.UpdateStatus(ctx, idText(p.ID), "En revisión")
		require.NoError(t, err)
		_, err = e.svc.UpdateStatus(ctx, idText(p.ID), "Rechazada")
		require.NoError(t, err)

		var stored models.Proposal
		require.NoError(t, e.db.First(&stored, p.ID).Error)
		assert.Equal(t, models.StatusRejected, stored.Status)
	})

	invalid := []struct {
		name   string
		id     string
		status string
	}{
		{"missing id", "", "Aceptada"},
		{"missing status", idText(p.ID), ""},
		{"non numeric id", "abc", "Aceptada"},
		{"unknown status", idText(p.ID), "Aprobada"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.UpdateStatus(ctx, tt.id, tt.status)
			assert.ErrorIs(t, err, proposals.ErrInvalidAction)

			var stored models.Proposal
			require.NoError(t, e.db.First(&stored, p.ID).Error)
			assert.Equal(t, models.StatusRejected, stored.Status)
		})
	}

	t.Run("unknown id", func(t *testing.T) {
		_, err := e.svc.UpdateStatus(ctx, "999999", "Aceptada")
		assert.ErrorIs(t, err, proposals.ErrNotFound)
	})
}

func strconvUint(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
