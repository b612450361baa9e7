package files

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dverbin/audiochat/internal/common"
	"github.com/dverbin/audiochat/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func fileColumns() []string {
	return []string{"id", "user_id", "name", "storage_key", "url", "upload_status", "created_at", "updated_at"}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+files\b.*ON\s+CONFLICT\s*\(storage_key\)\s*DO\s+NOTHING;?\s*$`

	mock.ExpectExec(q).
		WithArgs("f1", "u1", "talk.mp3", "abc123", "https://store/abc123", "PROCESSING").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.File{
		ID:           "f1",
		UserID:       "u1",
		Name:         "talk.mp3",
		StorageKey:   "abc123",
		URL:          "https://store/abc123",
		UploadStatus: models.UploadStatusProcessing,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateKey(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+files\b.*DO\s+NOTHING;?\s*$`

	mock.ExpectExec(q).
		WithArgs("f2", "u1", "talk.mp3", "abc123", "https://store/abc123", "PROCESSING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &models.File{
		ID:           "f2",
		UserID:       "u1",
		Name:         "talk.mp3",
		StorageKey:   "abc123",
		URL:          "https://store/abc123",
		UploadStatus: models.UploadStatusProcessing,
	})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+files\b`

	mock.ExpectExec(q).
		WithArgs("f3", "u1", "talk.mp3", "k", "u", "PROCESSING").
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.File{
		ID: "f3", UserID: "u1", Name: "talk.mp3", StorageKey: "k", URL: "u",
		UploadStatus: models.UploadStatusProcessing,
	})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByKey_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT .* FROM files\s+WHERE storage_key = \$1`).
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows(fileColumns()).
			AddRow("f1", "u1", "talk.mp3", "abc123", "https://store/abc123", "SUCCESS", now, now))

	f, err := repo.GetByKey(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID != "f1" || f.UploadStatus != models.UploadStatusSuccess {
		t.Fatalf("unexpected file: %+v", f)
	}
}

func TestGetByKey_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .* FROM files\s+WHERE storage_key = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByKey(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestUpdateStatus_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE files SET upload_status = \$1, updated_at = now\(\) WHERE id = \$2`).
		WithArgs("FAILED", "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatus(context.Background(), "f1", models.UploadStatusFailed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateStatus_WrongRowCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE files SET upload_status = \$1`).
		WithArgs("SUCCESS", "absent").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "absent", models.UploadStatusSuccess)
	if err == nil {
		t.Fatalf("expected error for zero affected rows")
	}
}

func TestListByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT .* FROM files\s+WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(fileColumns()).
			AddRow("f2", "u1", "b.mp3", "k2", "u2", "PROCESSING", now, now).
			AddRow("f1", "u1", "a.mp3", "k1", "u1", "SUCCESS", now, now))

	list, err := repo.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "f2" {
		t.Fatalf("unexpected list: %+v", list)
	}
}
