package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"willdraft-go/chatbot"
	"willdraft-go/config"
	"willdraft-go/document"
	"willdraft-go/lifecycle"
	"willdraft-go/middleware"
	"willdraft-go/models"
	"willdraft-go/store"
	"willdraft-go/will"
	"willdraft-go/wizard"
)

// ErrorResponse is the body handlers send with an error status.
type ErrorResponse struct {
	Status    int         `json:"status"`
	Error     string      `json:"error"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// sendError writes an ErrorResponse with the given status.
func sendError(w http.ResponseWriter, status int, err string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Status:    status,
		Error:     err,
		Details:   details,
		Timestamp: time.Now(),
	})
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendRawJSON(w http.ResponseWriter, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

// Chatbot is the question-answering collaborator behind /api/chat.
type Chatbot interface {
	Ask(ctx context.Context, query string) chatbot.Reply
}

// Deps are the components the handlers delegate to.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Log       *zap.Logger
	Store     *store.Store
	Lifecycle *lifecycle.Manager
	Navigator *wizard.Navigator
	Exporter  *document.Exporter
	Chatbot   Chatbot
}

type Handlers struct {
	db        *gorm.DB
	config    *config.Config
	log       *zap.Logger
	store     *store.Store
	lifecycle *lifecycle.Manager
	navigator *wizard.Navigator
	exporter  *document.Exporter
	chatbot   Chatbot
	now       func() time.Time
}

func NewHandlers(d Deps) *Handlers {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		db:        d.DB,
		config:    d.Config,
		log:       log,
		store:     d.Store,
		lifecycle: d.Lifecycle,
		navigator: d.Navigator,
		exporter:  d.Exporter,
		chatbot:   d.Chatbot,
		now:       time.Now,
	}
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	sendJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now(),
		"service":   "WillDraft",
		"version":   "1.0.0",
	})
}

// userID returns the caller's id, writing a 401 when there is none.
func (h *Handlers) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := middleware.GetUserFromContext(r)
	if claims == nil || claims.UserID == "" {
		sendError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
		return "", false
	}
	return claims.UserID, true
}

func (h *Handlers) logAudit(userID *string, action, resource, details string, r *http.Request) {
	audit := models.AuditLog{
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Details:   details,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	if err := h.db.WithContext(r.Context()).Create(&audit).Error; err != nil {
		h.log.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

// sendDomainError maps errors from the draft store, the will package and
// the wizard onto HTTP responses.
func (h *Handlers) sendDomainError(w http.ResponseWriter, err error) {
	var ve *will.ValidationError
	switch {
	case errors.As(err, &ve):
		sendError(w, http.StatusBadRequest, "Validation failed", ve.Fields)
	case errors.Is(err, store.ErrUnknownSection),
		errors.Is(err, store.ErrNotListSection),
		errors.Is(err, wizard.ErrUnknownStep):
		sendError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, store.ErrItemNotFound),
		errors.Is(err, lifecycle.ErrWillNotFound),
		errors.Is(err, document.ErrExportNotFound):
		sendError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, store.ErrDuplicateItem):
		sendError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, store.ErrInvalidPayload):
		sendError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, store.ErrDraftUnavailable):
		h.log.Error("draft storage unavailable", zap.Error(err))
		sendError(w, http.StatusServiceUnavailable, "Your draft could not be reached. Please try again.", nil)
	default:
		h.log.Error("request failed", zap.Error(err))
		sendError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func pagination(r *http.Request, defaultLimit int) (limit, offset int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = defaultLimit
	}
	return limit, (page - 1) * limit
}
