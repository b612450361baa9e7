// Package httpapi exposes the REST API: auth, file reads and the upload
// completion webhook.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dverbin/audiochat/internal/logging"
	"github.com/dverbin/audiochat/internal/server/models"
	"github.com/dverbin/audiochat/internal/server/pipeline"
	"github.com/dverbin/audiochat/internal/server/services"
)

// UserService is the auth surface the API needs.
type UserService interface {
	Register(ctx context.Context, email string, password string) (*models.User, error)
	Login(ctx context.Context, email string, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// FileService is the file read/delete surface the API needs.
type FileService interface {
	PresignUpload(ctx context.Context) (string, string, error)
	List(ctx context.Context, userID string) ([]*models.File, error)
	Get(ctx context.Context, userID string, fileID string) (*models.File, error)
	UploadStatus(ctx context.Context, userID string, storageKey string) (string, error)
	Transcript(ctx context.Context, userID string, fileID string) (*models.Transcript, error)
	DownloadURL(ctx context.Context, userID string, fileID string) (string, error)
	Delete(ctx context.Context, userID string, fileID string) error
}

// Dispatcher accepts upload completion events for background processing.
type Dispatcher interface {
	Dispatch(ctx context.Context, event pipeline.UploadEvent)
}

// Handler bundles the API dependencies.
type Handler struct {
	users     UserService
	files     FileService
	workflow  Dispatcher
	jwtSecret []byte
	logger    logging.Logger
}

func NewHandler(users UserService, files FileService, workflow Dispatcher,
	jwtSecret []byte, logger logging.Logger) *Handler {
	return &Handler{
		users:     users,
		files:     files,
		workflow:  workflow,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// NewRouter constructs the HTTP router.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/v1/files", h.handleListFiles)
		r.Get("/v1/files/{id}", h.handleGetFile)
		r.Delete("/v1/files/{id}", h.handleDeleteFile)
		r.Get("/v1/files/{id}/transcript", h.handleGetTranscript)
		r.Get("/v1/files/{id}/url", h.handleDownloadURL)

		r.Post("/v1/uploads/presign", h.handlePresignUpload)
		r.Get("/v1/uploads/status", h.handleUploadStatus)
		r.Post("/v1/uploads/complete", h.handleUploadComplete)
	})

	return r
}
