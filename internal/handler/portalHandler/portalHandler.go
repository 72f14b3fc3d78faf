package portalHandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"partner-portal/internal/model/filerecord"
	"partner-portal/internal/model/user"
	"partner-portal/internal/refdata"
	"partner-portal/internal/service/fileService"
	"partner-portal/pkg/logger"
	"partner-portal/pkg/middleware"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// FileLister is the slice of the file service the handlers need.
type FileLister interface {
	PaginatedFileDataForUser(ctx context.Context, u *user.User, codeFilter []string, pageNumber, pageSize int) (*filerecord.PaginatedResult, error)
	DownloadExtract(ctx context.Context, u *user.User, code string, year, month int) (io.ReadCloser, error)
}

// UserStore loads the entitlement view for the authenticated account.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// SessionStore manages server-side login sessions.
type SessionStore interface {
	SaveSession(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	DeleteSession(ctx context.Context, token string) error
}

type PortalHandler struct {
	files      FileLister
	users      UserStore
	sessions   SessionStore
	tables     refdata.Tables
	jwtSecret  string
	sessionTTL time.Duration
}

func New(
	files FileLister,
	users UserStore,
	sessions SessionStore,
	tables refdata.Tables,
	jwtSecret string,
	sessionTTL time.Duration,
) *PortalHandler {
	return &PortalHandler{
		files:      files,
		users:      users,
		sessions:   sessions,
		tables:     tables,
		jwtSecret:  jwtSecret,
		sessionTTL: sessionTTL,
	}
}

type fileRecordResponse struct {
	Code                        string     `json:"code"`
	Name                        string     `json:"name"`
	Kind                        string     `json:"kind"`
	Year                        int        `json:"year"`
	Month                       int        `json:"month"`
	LastUpdated                 time.Time  `json:"last_updated"`
	LastDownloaded              *time.Time `json:"last_downloaded,omitempty"`
	HasUpdatedSinceLastDownload bool       `json:"has_updated_since_last_download"`
}

type listFilesResponse struct {
	Records                  []fileRecordResponse `json:"records"`
	CurrentPage              int                  `json:"current_page"`
	MaxPage                  int                  `json:"max_page"`
	UserHasUndownloadedFiles bool                 `json:"user_has_undownloaded_files"`
}

// CreateSession exchanges a verified bearer token from the identity provider
// for a server-side session.
func (h *PortalHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "authorization token not provided")
		return
	}
	token := strings.TrimPrefix(header, "Bearer ")

	userID, err := middleware.VerifyToken(token, h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if err := h.sessions.SaveSession(r.Context(), token, userID, h.sessionTTL); err != nil {
		logger.GetLogger(r.Context()).Error("failed to save session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"expires_at": time.Now().Add(h.sessionTTL).UTC().Format(time.RFC3339),
	})
}

// DeleteSession logs the caller out.
func (h *PortalHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := h.sessions.DeleteSession(r.Context(), token); err != nil {
		logger.GetLogger(r.Context()).Error("failed to delete session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFiles serves one page of the caller's extract listing.
// Query parameters: page, size, and zero or more code filters.
func (h *PortalHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(w, r)
	if u == nil {
		return
	}

	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", defaultPageSize)
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	codes := r.URL.Query()["code"]

	result, err := h.files.PaginatedFileDataForUser(r.Context(), u, codes, page, size)
	if err != nil {
		logger.GetLogger(r.Context()).Error("failed to build file listing",
			zap.String("user", u.ID.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build file listing")
		return
	}

	resp := listFilesResponse{
		Records:                  make([]fileRecordResponse, 0, len(result.Records)),
		CurrentPage:              result.CurrentPage,
		MaxPage:                  result.MaxPage,
		UserHasUndownloadedFiles: result.UserHasUndownloadedFiles,
	}
	for _, record := range result.Records {
		name, err := record.DisplayName(h.tables)
		if err != nil {
			logger.GetLogger(r.Context()).Error("failed to resolve record name", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to build file listing")
			return
		}
		resp.Records = append(resp.Records, fileRecordResponse{
			Code:                        record.Code,
			Name:                        name,
			Kind:                        record.Kind.String(),
			Year:                        record.Year,
			Month:                       record.Month,
			LastUpdated:                 record.LastUpdated,
			LastDownloaded:              record.LastDownloaded,
			HasUpdatedSinceLastDownload: record.HasUpdatedSinceLastDownload(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// DownloadFile streams one extract and records the download.
func (h *PortalHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(w, r)
	if u == nil {
		return
	}

	code := chi.URLParam(r, "code")
	year, errYear := strconv.Atoi(chi.URLParam(r, "year"))
	month, errMonth := strconv.Atoi(chi.URLParam(r, "month"))
	if errYear != nil || errMonth != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid year or month")
		return
	}
	// Unknown codes are a 404, and are checked before entitlement so that
	// probing for codes reveals nothing.
	if !h.tables.IsConsortiumCode(code) {
		if _, err := h.tables.AuthorityName(code); err != nil {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
	}

	reader, err := h.files.DownloadExtract(r.Context(), u, code, year, month)
	switch {
	case errors.Is(err, fileService.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access denied")
		return
	case errors.Is(err, fileService.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "file not found")
		return
	case err != nil:
		logger.GetLogger(r.Context()).Error("failed to download extract",
			zap.String("code", code), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to download extract")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s_%d_%02d.csv", code, year, month)))
	if _, err := io.Copy(w, reader); err != nil {
		logger.GetLogger(r.Context()).Warn("extract stream interrupted",
			zap.String("code", code), zap.Error(err))
	}
}

// currentUser loads the entitlement view for the authenticated user id, or
// writes the failure response and returns nil.
func (h *PortalHandler) currentUser(w http.ResponseWriter, r *http.Request) *user.User {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil
	}
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		logger.GetLogger(r.Context()).Error("failed to load user",
			zap.String("user", userID.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return nil
	}
	if u == nil {
		writeError(w, http.StatusForbidden, "account not provisioned")
		return nil
	}
	return u
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
