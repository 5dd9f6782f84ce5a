package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestAppendInsertsRecord(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO "assessment_history" .*'session-1'.*'run-1'.*'F-1'.*72`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &Record{
		SessionID:    "session-1",
		RunID:        "run-1",
		VisaCategory: "F-1",
		OverallScore: 72,
		Report:       "## Applicant Profile",
	}
	require.NoError(t, store.Append(context.Background(), rec))

	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRejectsIncompleteRecord(t *testing.T) {
	store, mock := newMockStore(t)

	err := store.Append(context.Background(), &Record{SessionID: "s", RunID: "r"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	err = store.Append(context.Background(), &Record{RunID: "r", Report: "x"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendWrapsDatabaseError(t *testing.T) {
	store, mock := newMockStore(t)
	dbErr := errors.New("connection reset")

	mock.ExpectExec(`INSERT INTO "assessment_history"`).WillReturnError(dbErr)

	err := store.Append(context.Background(), &Record{SessionID: "s", RunID: "r", Report: "x"})
	assert.ErrorIs(t, err, dbErr)
}

func TestListNewestFirst(t *testing.T) {
	store, mock := newMockStore(t)
	newer := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)

	rows := sqlmock.NewRows([]string{"id", "session_id", "run_id", "visa_category", "overall_score", "report", "created_at"}).
		AddRow("b", "session-1", "run-2", "H-1B", 64.0, "# two", newer).
		AddRow("a", "session-1", "run-1", "F-1", 72.0, "# one", older)
	mock.ExpectQuery(`SELECT .* FROM "assessment_history" AS "h" WHERE \(session_id = 'session-1'\) ORDER BY "created_at" DESC LIMIT 5`).
		WillReturnRows(rows)

	records, err := store.List(context.Background(), "session-1", 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "run-2", records[0].RunID)
	assert.Equal(t, 72.0, records[1].OverallScore)
	assert.True(t, records[0].CreatedAt.Equal(newer))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTableIfNotExists(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "assessment_history"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.CreateTable(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
