package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dverbin/audiochat/internal/common"
	"github.com/dverbin/audiochat/internal/server/models"
)

type fakeFilesRepo struct {
	byIDOut  *models.File
	byIDErr  error
	byKeyOut *models.File
	byKeyErr error
	listOut  []*models.File
	listErr  error
	delErr   error

	deleted []string
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) error { return nil }
func (f *fakeFilesRepo) GetByKey(ctx context.Context, key string) (*models.File, error) {
	if f.byKeyErr != nil {
		return nil, f.byKeyErr
	}
	return f.byKeyOut, nil
}
func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byIDOut, nil
}
func (f *fakeFilesRepo) ListByUser(ctx context.Context, userID string) ([]*models.File, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}
func (f *fakeFilesRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	return nil
}
func (f *fakeFilesRepo) Delete(ctx context.Context, id string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeTranscriptsRepo struct {
	getOut *models.Transcript
	getErr error
	delErr error

	deleted []string
}

func (f *fakeTranscriptsRepo) Create(ctx context.Context, tr *models.Transcript) error { return nil }
func (f *fakeTranscriptsRepo) GetByFileID(ctx context.Context, fileID string) (*models.Transcript, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}
func (f *fakeTranscriptsRepo) DeleteByFileID(ctx context.Context, fileID string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, fileID)
	return nil
}

type fakeObjectStore struct {
	putKey string
	putURL string
	getURL string
	err    error

	deleted []string
}

func (f *fakeObjectStore) PresignedPutURL(ctx context.Context) (string, string, error) {
	return f.putKey, f.putURL, f.err
}
func (f *fakeObjectStore) PresignedGetURL(ctx context.Context, key string) (string, error) {
	return f.getURL, f.err
}
func (f *fakeObjectStore) DeleteObject(ctx context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func ownedFile() *models.File {
	return &models.File{
		ID:           "file-1",
		UserID:       "user-1",
		Name:         "standup.mp3",
		StorageKey:   "users/2026/8/31/abc",
		UploadStatus: models.UploadStatusSuccess,
	}
}

func TestFileGet_OwnershipEnforced(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	svc := NewFileService(db, &fakeRepoManager{
		files: &fakeFilesRepo{byIDOut: ownedFile()},
	}, &fakeObjectStore{})

	if _, err := svc.Get(context.Background(), "user-1", "file-1"); err != nil {
		t.Fatalf("Get err: %v", err)
	}

	_, err := svc.Get(context.Background(), "intruder", "file-1")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound for foreign file, got %v", err)
	}
}

func TestUploadStatus_PendingWhenMissing(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	svc := NewFileService(db, &fakeRepoManager{
		files: &fakeFilesRepo{byKeyErr: common.ErrorNotFound},
	}, &fakeObjectStore{})

	status, err := svc.UploadStatus(context.Background(), "user-1", "users/2026/8/31/new")
	if err != nil {
		t.Fatalf("UploadStatus err: %v", err)
	}
	if status != models.UploadStatusPending {
		t.Fatalf("expected PENDING, got %q", status)
	}
}

func TestUploadStatus_ReportsRowStatus(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	svc := NewFileService(db, &fakeRepoManager{
		files: &fakeFilesRepo{byKeyOut: ownedFile()},
	}, &fakeObjectStore{})

	status, err := svc.UploadStatus(context.Background(), "user-1", "users/2026/8/31/abc")
	if err != nil {
		t.Fatalf("UploadStatus err: %v", err)
	}
	if status != models.UploadStatusSuccess {
		t.Fatalf("expected SUCCESS, got %q", status)
	}
}

func TestUploadStatus_ForeignKeyReadsPending(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	svc := NewFileService(db, &fakeRepoManager{
		files: &fakeFilesRepo{byKeyOut: ownedFile()},
	}, &fakeObjectStore{})

	status, err := svc.UploadStatus(context.Background(), "intruder", "users/2026/8/31/abc")
	if err != nil {
		t.Fatalf("UploadStatus err: %v", err)
	}
	if status != models.UploadStatusPending {
		t.Fatalf("expected PENDING, got %q", status)
	}
}

func TestTranscript_OwnedFile(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	svc := NewFileService(db, &fakeRepoManager{
		files:       &fakeFilesRepo{byIDOut: ownedFile()},
		transcripts: &fakeTranscriptsRepo{getOut: &models.Transcript{FileID: "file-1", Body: "hello world"}},
	}, &fakeObjectStore{})

	tr, err := svc.Transcript(context.Background(), "user-1", "file-1")
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if tr.Body != "hello world" {
		t.Fatalf("unexpected body: %q", tr.Body)
	}
}

func TestDelete_OrderingTranscriptFileObject(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	filesRepo := &fakeFilesRepo{byIDOut: ownedFile()}
	transcriptsRepo := &fakeTranscriptsRepo{}
	store := &fakeObjectStore{}

	svc := NewFileService(db, &fakeRepoManager{
		files:       filesRepo,
		transcripts: transcriptsRepo,
	}, store)

	if err := svc.Delete(context.Background(), "user-1", "file-1"); err != nil {
		t.Fatalf("Delete err: %v", err)
	}

	if len(transcriptsRepo.deleted) != 1 || transcriptsRepo.deleted[0] != "file-1" {
		t.Fatalf("transcript not deleted: %v", transcriptsRepo.deleted)
	}
	if len(filesRepo.deleted) != 1 || filesRepo.deleted[0] != "file-1" {
		t.Fatalf("file row not deleted: %v", filesRepo.deleted)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "users/2026/8/31/abc" {
		t.Fatalf("object not deleted: %v", store.deleted)
	}
}

func TestDelete_RowFailureKeepsObject(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	filesRepo := &fakeFilesRepo{byIDOut: ownedFile(), delErr: errors.New("db down")}
	store := &fakeObjectStore{}

	svc := NewFileService(db, &fakeRepoManager{
		files:       filesRepo,
		transcripts: &fakeTranscriptsRepo{},
	}, store)

	if err := svc.Delete(context.Background(), "user-1", "file-1"); err == nil {
		t.Fatalf("expected error")
	}
	if len(store.deleted) != 0 {
		t.Fatalf("object deleted despite row failure")
	}
}

func TestDownloadURL(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	svc := NewFileService(db, &fakeRepoManager{
		files: &fakeFilesRepo{byIDOut: ownedFile()},
	}, &fakeObjectStore{getURL: "https://signed.example/get"})

	url, err := svc.DownloadURL(context.Background(), "user-1", "file-1")
	if err != nil {
		t.Fatalf("DownloadURL err: %v", err)
	}
	if url != "https://signed.example/get" {
		t.Fatalf("unexpected url: %q", url)
	}
}
