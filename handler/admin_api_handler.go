// ABOUTME: HTTP surface for operating the sync service: refresh, status, feeds, folders, articles
// ABOUTME: Rate limiting, input validation and security headers on every endpoint

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/repository"
	"github.com/HieuLsw/NetNewsWire/service"

	"github.com/google/uuid"
)

const requestTimeout = 30 * time.Second

// SyncController is the orchestrator surface the admin API drives.
type SyncController interface {
	Refresh(ctx context.Context) error
	State() service.SyncState
	Suspend()
	Resume()
	Suspended() bool
	HandleRemoteNotification(ctx context.Context, payload models.NotificationPayload) error
}

// StatusService flips article status flags and reports queue depth.
type StatusService interface {
	MarkArticles(ctx context.Context, articleIDs []uuid.UUID, key models.StatusKey, flag bool) error
	PendingCount(ctx context.Context) (int, error)
}

// FeedManager is the feed/folder mutation surface of the pipeline.
type FeedManager interface {
	CreateFeed(ctx context.Context, account *models.Account, rawURL string, folder *models.Folder) (*models.Feed, error)
	RenameFeed(ctx context.Context, feed *models.Feed, newName string) error
	MoveFeed(ctx context.Context, feed *models.Feed, folder *models.Folder) error
	RemoveFeed(ctx context.Context, feed *models.Feed) error
	CreateFolder(ctx context.Context, account *models.Account, name string) (*models.Folder, error)
	RenameFolder(ctx context.Context, folder *models.Folder, newName string) error
	RemoveFolder(ctx context.Context, folder *models.Folder) error
	ImportNormalized(ctx context.Context, account *models.Account, doc service.NormalizedImport) (*service.ImportResult, error)
}

// RateLimiter throttles admin API clients per endpoint.
type RateLimiter interface {
	IsAllowed(clientIP, endpoint string) bool
	RecordRequest(clientIP, endpoint string)
}

// InputValidator validates user-supplied values before they reach the
// pipeline.
type InputValidator interface {
	ValidateFeedURL(rawURL string) error
	ValidateName(field, name string) error
}

// AdminAPIHandler serves the local admin API of the sync service.
type AdminAPIHandler struct {
	controller  SyncController
	statusSvc   StatusService
	feeds       FeedManager
	accountRepo repository.AccountRepository
	feedRepo    repository.FeedRepository
	folderRepo  repository.FolderRepository
	progress    *service.ProgressTracker
	rateLimiter RateLimiter
	validator   InputValidator
	logger      *slog.Logger
}

// NewAdminAPIHandler creates the handler.
func NewAdminAPIHandler(
	controller SyncController,
	statusSvc StatusService,
	feeds FeedManager,
	accountRepo repository.AccountRepository,
	feedRepo repository.FeedRepository,
	folderRepo repository.FolderRepository,
	progress *service.ProgressTracker,
	rateLimiter RateLimiter,
	validator InputValidator,
	logger *slog.Logger,
) *AdminAPIHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AdminAPIHandler{
		controller:  controller,
		statusSvc:   statusSvc,
		feeds:       feeds,
		accountRepo: accountRepo,
		feedRepo:    feedRepo,
		folderRepo:  folderRepo,
		progress:    progress,
		rateLimiter: rateLimiter,
		validator:   validator,
		logger:      logger,
	}
}

// Routes registers every endpoint on a fresh mux.
func (h *AdminAPIHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/sync/refresh", h.handleRefresh)
	mux.HandleFunc("GET /v1/sync/status", h.handleSyncStatus)
	mux.HandleFunc("POST /v1/sync/suspend", h.handleSuspend)
	mux.HandleFunc("POST /v1/sync/resume", h.handleResume)
	mux.HandleFunc("POST /v1/notifications", h.handleNotification)

	mux.HandleFunc("POST /v1/feeds", h.handleCreateFeed)
	mux.HandleFunc("POST /v1/feeds/{id}/rename", h.handleRenameFeed)
	mux.HandleFunc("POST /v1/feeds/{id}/move", h.handleMoveFeed)
	mux.HandleFunc("DELETE /v1/feeds/{id}", h.handleRemoveFeed)

	mux.HandleFunc("POST /v1/folders", h.handleCreateFolder)
	mux.HandleFunc("POST /v1/folders/{id}/rename", h.handleRenameFolder)
	mux.HandleFunc("DELETE /v1/folders/{id}", h.handleRemoveFolder)

	mux.HandleFunc("POST /v1/articles/mark", h.handleMarkArticles)
	mux.HandleFunc("POST /v1/import", h.handleImport)

	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return mux
}

// handleRefresh kicks off a refresh cycle in the background. Concurrent
// requests coalesce inside the orchestrator, so a 202 only means the
// request was accepted.
func (h *AdminAPIHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/sync/refresh") {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := h.controller.Refresh(ctx); err != nil {
			h.logger.Error("Background refresh failed", "error", err)
		}
	}()

	h.respond(w, http.StatusAccepted, models.AdminAPIResponse{
		Success: true,
		Message: "refresh started",
	})
}

func (h *AdminAPIHandler) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/sync/status") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	pending, err := h.statusSvc.PendingCount(ctx)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to read status queue")
		return
	}

	var lastSyncAt *time.Time
	if account, err := h.accountRepo.FindDefault(ctx); err == nil {
		lastSyncAt = account.LastSyncAt
	}

	snapshot := h.progress.Snapshot()
	h.respond(w, http.StatusOK, models.AdminAPIResponse{
		Success: true,
		Data: models.SyncStatusResponse{
			State:           h.controller.State().String(),
			Suspended:       h.controller.Suspended(),
			TotalTasks:      snapshot.TotalTasks,
			RemainingTasks:  snapshot.RemainingTasks,
			LastSyncAt:      lastSyncAt,
			PendingStatuses: pending,
		},
	})
}

func (h *AdminAPIHandler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/sync/suspend") {
		return
	}
	h.controller.Suspend()
	h.respond(w, http.StatusOK, models.AdminAPIResponse{Success: true, Message: "sync suspended"})
}

func (h *AdminAPIHandler) handleResume(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/sync/resume") {
		return
	}
	h.controller.Resume()
	h.respond(w, http.StatusOK, models.AdminAPIResponse{Success: true, Message: "sync resumed"})
}

// handleNotification is the webhook target for remote change
// notifications.
func (h *AdminAPIHandler) handleNotification(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/notifications") {
		return
	}

	var payload models.NotificationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.controller.HandleRemoteNotification(ctx, payload); err != nil {
		h.logger.Error("Notification handling failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "notification handling failed")
		return
	}

	h.respond(w, http.StatusOK, models.AdminAPIResponse{Success: true})
}

func (h *AdminAPIHandler) handleCreateFeed(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/feeds") {
		return
	}

	var req models.CreateFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}
	if err := h.validator.ValidateFeedURL(req.URL); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	account, err := h.accountRepo.FindDefault(ctx)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	var folder *models.Folder
	if req.FolderID != "" {
		folder, err = h.lookupFolder(ctx, req.FolderID)
		if err != nil {
			h.respondError(w, http.StatusNotFound, "folder not found")
			return
		}
	}

	feed, err := h.feeds.CreateFeed(ctx, account, req.URL, folder)
	if err != nil {
		if errors.Is(err, service.ErrAlreadySubscribed) {
			h.respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("Feed creation failed", "url", req.URL, "error", err)
		h.respondError(w, http.StatusBadGateway, "feed creation failed")
		return
	}

	h.respond(w, http.StatusCreated, models.AdminAPIResponse{Success: true, Data: feed})
}

func (h *AdminAPIHandler) handleRenameFeed(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/feeds/rename") {
		return
	}

	var req models.RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}
	if err := h.validator.ValidateName("name", req.Name); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	feed, ok := h.lookupFeed(ctx, w, r.PathValue("id"))
	if !ok {
		return
	}

	if err := h.feeds.RenameFeed(ctx, feed, req.Name); err != nil {
		h.logger.Error("Feed rename failed", "feed_id", feed.ID, "error", err)
		h.respondError(w, http.StatusBadGateway, "feed rename failed")
		return
	}

	h.respond(w, http.StatusOK, models.AdminAPIResponse{Success: true, Data: feed})
}

func (h *AdminAPIHandler) handleMoveFeed(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/feeds/move") {
		return
	}

	var req models.MoveFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	feed, ok := h.lookupFeed(ctx, w, r.PathValue("id"))
	if !ok {
		return
	}

	var folder *models.Folder
	if req.FolderID != "" {
		var err error
		folder, err = h.lookupFolder(ctx, req.FolderID)
		if err != nil {
			h.respondError(w, http.StatusNotFound, "folder not found")
			return
		}
	}

	if err := h.feeds.MoveFeed(ctx, feed, folder); err != nil {
		h.logger.Error("Feed move failed", "feed_id", feed.ID, "error", err)
		h.respondError(w, http.StatusBadGateway, "feed move failed")
		return
	}

	h.respond(w, http.StatusOK, models.AdminAPIResponse{Success: true, Data: feed})
}

func (h *AdminAPIHandler) handleRemoveFeed(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/feeds/remove") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	feed, ok := h.lookupFeed(ctx, w, r.PathValue("id"))
	if !ok {
		return
	}

	if err := h.feeds.RemoveFeed(ctx, feed); err != nil {
		h.logger.Error("Feed removal failed", "feed_id", feed.ID, "error", err)
		h.respondError(w, http.StatusBadGateway, "feed removal failed")
		return
	}

	h.respond(w, http.StatusOK, models.AdminAPIResponse{Success: true, Message: "feed removed"})
}

func (h *AdminAPIHandler) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/folders") {
		return
	}

	var req models.CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}
	if err := h.validator.ValidateName("name", req.Name); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	account, err := h.accountRepo.FindDefault(ctx)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	folder, err := h.feeds.CreateFolder(ctx, account, req.Name)
	if err != nil {
		h.logger.Error("Folder creation failed", "name", req.Name, "error", err)
		h.respondError(w, http.StatusBadGateway, "folder creation failed")
		return
	}

	h.respond(w, http.StatusCreated, models.AdminAPIResponse{Success: true, Data: folder})
}

func (h *AdminAPIHandler) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/folders/rename") {
		return
	}

	var req models.RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}
	if err := h.validator.ValidateName("name", req.Name); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	folder, err := h.lookupFolder(ctx, r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusNotFound, "folder not found")
		return
	}

	if err := h.feeds.RenameFolder(ctx, folder, req.Name); err != nil {
		h.logger.Error("Folder rename failed", "folder_id", folder.ID, "error", err)
		h.respondError(w, http.StatusBadGateway, "folder rename failed")
		return
	}

	h.respond(w, http.StatusOK, models.AdminAPIResponse{Success: true, Data: folder})
}

func (h *AdminAPIHandler) handleRemoveFolder(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/folders/remove") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	folder, err := h.lookupFolder(ctx, r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusNotFound, "folder not found")
		return
	}

	if err := h.feeds.RemoveFolder(ctx, folder); err != nil {
		h.logger.Error("Folder removal failed", "folder_id", folder.ID, "error", err)
		h.respondError(w, http.StatusBadGateway, "folder removal failed")
		return
	}

	h.respond(w, http.StatusOK, models.AdminAPIResponse{Success: true, Message: "folder removed"})
}

func (h *AdminAPIHandler) handleMarkArticles(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/articles/mark") {
		return
	}

	var req models.MarkArticlesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}
	if len(req.ArticleIDs) == 0 {
		h.respondError(w, http.StatusBadRequest, "article_ids must not be empty")
		return
	}

	articleIDs := make([]uuid.UUID, 0, len(req.ArticleIDs))
	for _, raw := range req.ArticleIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid article id: "+raw)
			return
		}
		articleIDs = append(articleIDs, id)
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.statusSvc.MarkArticles(ctx, articleIDs, models.StatusKey(req.Key), req.Flag); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respond(w, http.StatusOK, models.AdminAPIResponse{Success: true, Message: "articles marked"})
}

// handleImport accepts a normalized subscription document. OPML parsing
// happens on the caller's side.
func (h *AdminAPIHandler) handleImport(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, "/v1/import") {
		return
	}

	var doc service.NormalizedImport
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	// Imports may subscribe to many feeds; allow more time than a
	// single-feed mutation.
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	account, err := h.accountRepo.FindDefault(ctx)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	result, err := h.feeds.ImportNormalized(ctx, account, doc)
	if err != nil {
		h.logger.Error("Import failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "import failed")
		return
	}

	h.respond(w, http.StatusOK, models.AdminAPIResponse{Success: true, Data: result})
}

// handleHealth reports liveness plus database reachability. Record
// store credentials are validated at startup, so a running process
// implies they are present.
func (h *AdminAPIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.accountRepo.FindDefault(ctx); err != nil {
		h.logger.Error("Health check database probe failed", "error", err)
		h.respond(w, http.StatusServiceUnavailable, models.AdminAPIResponse{
			Success: false,
			Message: "database unavailable",
		})
		return
	}

	h.respond(w, http.StatusOK, models.AdminAPIResponse{Success: true, Message: "ok"})
}

// gate applies the per-endpoint rate limit and the standard security
// headers. It reports whether the request may proceed.
func (h *AdminAPIHandler) gate(w http.ResponseWriter, r *http.Request, endpoint string) bool {
	setSecurityHeaders(w)

	clientIP := getClientIP(r)
	if !h.rateLimiter.IsAllowed(clientIP, endpoint) {
		h.logger.Warn("Rate limit exceeded",
			"client_ip", clientIP,
			"endpoint", endpoint)
		h.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return false
	}
	h.rateLimiter.RecordRequest(clientIP, endpoint)
	return true
}

func (h *AdminAPIHandler) lookupFeed(ctx context.Context, w http.ResponseWriter, rawID string) (*models.Feed, bool) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid feed id")
		return nil, false
	}

	feed, err := h.feedRepo.FindByID(ctx, id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "feed lookup failed")
		return nil, false
	}
	if feed == nil {
		h.respondError(w, http.StatusNotFound, "feed not found")
		return nil, false
	}
	return feed, true
}

func (h *AdminAPIHandler) lookupFolder(ctx context.Context, rawID string) (*models.Folder, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, err
	}

	folder, err := h.folderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, errors.New("folder not found")
	}
	return folder, nil
}

func (h *AdminAPIHandler) respond(w http.ResponseWriter, statusCode int, body models.AdminAPIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *AdminAPIHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respond(w, statusCode, models.AdminAPIResponse{Success: false, Error: message})
}

func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
}

// getClientIP resolves the caller's address, honoring proxy headers.
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		parts := strings.Split(ip, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
