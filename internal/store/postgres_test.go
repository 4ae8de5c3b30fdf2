package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlex/lexcrawl/internal/crawl"
)

func testRecord() crawl.Record {
	return crawl.Record{
		Key:          "abc123",
		URL:          "https://law.example.test/codes?sectionNum=1.",
		Jurisdiction: "CA",
		Section:      "1.",
		Headings: []crawl.Heading{
			{Level: "code", Text: "CIVIL CODE"},
			{Level: "division", Text: "DIVISION 1.", Note: "PERSONS"},
		},
		Text:        "Every person is entitled to protection.",
		CollectedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPostgresExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostgresFromPool(mock, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM law_entries WHERE natural_key = $1)`)).
		WithArgs("abc123").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	found, err := p.Exists(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostgresFromPool(mock, nil)
	rec := testRecord()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO law_entries`)).
		WithArgs(pgxmock.AnyArg(), rec.Key, rec.URL, rec.Jurisdiction, rec.Section, rec.Text, rec.CollectedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO law_sections`)).
		WithArgs(pgxmock.AnyArg(), 0, "code", "CIVIL CODE", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO law_sections`)).
		WithArgs(pgxmock.AnyArg(), 1, "division", "DIVISION 1.", "PERSONS").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	require.NoError(t, p.Insert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostgresFromPool(mock, nil)
	rec := testRecord()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO law_entries`)).
		WithArgs(pgxmock.AnyArg(), rec.Key, rec.URL, rec.Jurisdiction, rec.Section, rec.Text, rec.CollectedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "law_entries_natural_key_key"})
	mock.ExpectRollback()

	err = p.Insert(context.Background(), rec)
	assert.ErrorIs(t, err, crawl.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertOtherErrorIsNotDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostgresFromPool(mock, nil)
	rec := testRecord()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO law_entries`)).
		WithArgs(pgxmock.AnyArg(), rec.Key, rec.URL, rec.Jurisdiction, rec.Section, rec.Text, rec.CollectedAt).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = p.Insert(context.Background(), rec)
	require.Error(t, err)
	assert.NotErrorIs(t, err, crawl.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
