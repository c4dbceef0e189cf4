package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createdAt = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Repository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, New(mock)
}

func TestCreateDiagnostic(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery("INSERT INTO diagnostic_results").
		WithArgs(pgxmock.AnyArg(), "s-1", "web", "rough", "xlarge", "nobody", "none",
			int64(318000), int64(756000), int64(1193000), 3.98).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	out, err := repo.CreateDiagnostic(context.Background(), CreateDiagnosticParams{
		SessionID:       "s-1",
		Channel:         "web",
		Stage:           "rough",
		Area:            "xlarge",
		Control:         "nobody",
		Fixation:        "none",
		LossMin:         318000,
		LossAvg:         756000,
		LossMax:         1193000,
		TotalMultiplier: 3.98,
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, out.ID)
	assert.Equal(t, createdAt, out.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateContactStoresOptionalColumnsAsNull(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery("INSERT INTO lead_contacts").
		WithArgs(pgxmock.AnyArg(), "s-2", "whatsapp", "+79615223190", (*string)(nil), (*int64)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	out, err := repo.CreateContact(context.Background(), CreateContactParams{
		SessionID: "s-2",
		Channel:   "whatsapp",
		Phone:     "+79615223190",
	})

	require.NoError(t, err)
	assert.Nil(t, out.Stage)
	assert.Nil(t, out.LossAvg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateQuestion(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery("INSERT INTO expert_questions").
		WithArgs(pgxmock.AnyArg(), "s-3", "web", "Как принять стяжку?", ptr("+79615223190")).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	out, err := repo.CreateQuestion(context.Background(), CreateQuestionParams{
		SessionID: "s-3",
		Channel:   "web",
		Question:  "Как принять стяжку?",
		Phone:     "+79615223190",
	})

	require.NoError(t, err)
	require.NotNil(t, out.Phone)
	assert.Equal(t, "+79615223190", *out.Phone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimReminder(t *testing.T) {
	mock, repo := newMock(t)
	id := uuid.New()
	at := createdAt.Add(24 * time.Hour)

	mock.ExpectQuery("UPDATE lead_contacts SET reminded_at").
		WithArgs(id, at).
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "channel", "phone", "stage", "loss_avg", "reminded_at", "created_at"}).
			AddRow(id, "s-1", "web", "+79615223190", ptr("rough"), ptr(int64(175000)), ptr(at), createdAt))

	c, err := repo.ClaimReminder(context.Background(), id, at)
	require.NoError(t, err)
	assert.Equal(t, "+79615223190", c.Phone)
	require.NotNil(t, c.RemindedAt)
	assert.Equal(t, at, *c.RemindedAt)

	mock.ExpectQuery("UPDATE lead_contacts SET reminded_at").
		WithArgs(id, at).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.ClaimReminder(context.Background(), id, at)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListContactsNormalizesPaging(t *testing.T) {
	mock, repo := newMock(t)
	id := uuid.New()

	mock.ExpectQuery("FROM lead_contacts").
		WithArgs(maxPageSize, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "channel", "phone", "stage", "loss_avg", "reminded_at", "created_at", "count"}).
			AddRow(id, "s-1", "web", "+79615223190", ptr("living"), ptr(int64(390000)), (*time.Time)(nil), createdAt, 7))

	items, total, err := repo.ListContacts(context.Background(), ListParams{Limit: 5000, Offset: -3})

	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, "living", *items[0].Stage)
	assert.Nil(t, items[0].RemindedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDiagnosticsEmpty(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery("FROM diagnostic_results").
		WithArgs(defaultPageSize, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "channel", "stage", "area", "control", "fixation",
			"loss_min", "loss_avg", "loss_max", "total_multiplier", "created_at", "count"}))

	items, total, err := repo.ListDiagnostics(context.Background(), ListParams{Offset: 10})

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetContactNotFound(t *testing.T) {
	mock, repo := newMock(t)
	id := uuid.New()
	mock.ExpectQuery("FROM lead_contacts WHERE id").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetContact(context.Background(), id)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
