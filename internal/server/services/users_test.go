package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/dverbin/audiochat/internal/common"
	"github.com/dverbin/audiochat/internal/dbx"
	"github.com/dverbin/audiochat/internal/server/config"
	"github.com/dverbin/audiochat/internal/server/models"
	filesrepo "github.com/dverbin/audiochat/internal/server/repositories/files"
	refreshtokensrepo "github.com/dverbin/audiochat/internal/server/repositories/refreshtokens"
	transcriptsrepo "github.com/dverbin/audiochat/internal/server/repositories/transcripts"
	usersrepo "github.com/dverbin/audiochat/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	byEmailOut *models.User
	byEmailErr error

	byIDOut *models.User
	byIDErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	u.ID = "user-1"
	return u, nil
}
func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmailOut, nil
}
func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byIDOut, nil
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	delErr    error
	createErr error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	return f.createErr
}
func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}
func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	return f.delErr
}

type fakeRepoManager struct {
	users       usersrepo.Repository
	refresh     refreshtokensrepo.Repository
	files       filesrepo.Repository
	transcripts transcriptsrepo.Repository
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return f.users }
func (f *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository {
	return f.refresh
}
func (f *fakeRepoManager) Files(dbx.DBTX) filesrepo.Repository { return f.files }
func (f *fakeRepoManager) Transcripts(dbx.DBTX) transcriptsrepo.Repository {
	return f.transcripts
}

func newUserService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *UserService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewUserService(db, rm, cfg)
}

// --- tests ---

func TestRegister_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	svc := newUserService(t, db, &fakeRepoManager{users: &fakeUsersRepo{}})

	user, err := svc.Register(context.Background(), "a@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if user.ID != "user-1" {
		t.Fatalf("missing user id")
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte("hunter22")) != nil {
		t.Fatalf("password hash does not verify")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	svc := newUserService(t, db, &fakeRepoManager{
		users: &fakeUsersRepo{createErr: common.ErrorAlreadyExists},
	})

	_, err := svc.Register(context.Background(), "a@example.com", "hunter22")
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected ErrorAlreadyExists, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt err: %v", err)
	}

	svc := newUserService(t, db, &fakeRepoManager{
		users:   &fakeUsersRepo{byEmailOut: &models.User{ID: "user-1", Email: "a@example.com", PasswordHash: hash}},
		refresh: &fakeRefreshRepo{},
	})

	pair, err := svc.Login(context.Background(), "a@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty token pair: %+v", pair)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)

	svc := newUserService(t, db, &fakeRepoManager{
		users: &fakeUsersRepo{byEmailOut: &models.User{ID: "user-1", PasswordHash: hash}},
	})

	_, err := svc.Login(context.Background(), "a@example.com", "wrong")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected ErrorUnauthorized, got %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	svc := newUserService(t, db, &fakeRepoManager{
		users: &fakeUsersRepo{byEmailErr: common.ErrorNotFound},
	})

	_, err := svc.Login(context.Background(), "missing@example.com", "hunter22")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected ErrorUnauthorized, got %v", err)
	}
}

func TestRefreshToken_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := newUserService(t, db, &fakeRepoManager{
		refresh: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: "user-1", Token: "tok", Expires: time.Now().Add(time.Hour)},
		},
	})

	pair, err := svc.RefreshToken(context.Background(), "tok")
	if err != nil {
		t.Fatalf("RefreshToken err: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty token pair: %+v", pair)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshToken_Expired(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	svc := newUserService(t, db, &fakeRepoManager{
		refresh: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: "user-1", Token: "tok", Expires: time.Now().Add(-time.Minute)},
		},
	})

	_, err := svc.RefreshToken(context.Background(), "tok")
	if !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}
}

func TestRefreshToken_Unknown(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	svc := newUserService(t, db, &fakeRepoManager{
		refresh: &fakeRefreshRepo{findErr: common.ErrorNotFound},
	})

	_, err := svc.RefreshToken(context.Background(), "tok")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected ErrorUnauthorized, got %v", err)
	}
}
