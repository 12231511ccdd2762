// Package api exposes HTTP handlers for the codepad backend.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"example.com/codepad/internal/auth"
	"example.com/codepad/internal/domain"
	"example.com/codepad/internal/persistence"
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	tracker  *domain.Tracker
	accounts *domain.Accounts
	library  *domain.Library
	log      zerolog.Logger
}

// NewHandler builds a Handler.
func NewHandler(tracker *domain.Tracker, accounts *domain.Accounts, library *domain.Library, log zerolog.Logger) *Handler {
	return &Handler{tracker: tracker, accounts: accounts, library: library, log: log}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/editor/activity", h.editorActivity)
	mux.HandleFunc("/api/editor/today", h.editorToday)
	mux.HandleFunc("/api/auth/register", h.register)
	mux.HandleFunc("/api/auth/login", h.login)
	mux.HandleFunc("/api/auth/logout", h.logout)
	mux.HandleFunc("/api/auth/me", h.me)
	mux.HandleFunc("/api/documents", h.documents)
	mux.HandleFunc("/api/documents/", h.documentByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// editorActivity records a start or end of an editing interval for the
// authenticated caller.
func (h *Handler) editorActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	if err := h.tracker.Record(r.Context(), identity.UserID, req.Action); err != nil {
		if errors.Is(err, domain.ErrInvalidAction) {
			writeError(w, http.StatusBadRequest, `action must be "start" or "end"`)
			return
		}
		h.log.Error().Err(err).Str("user_id", identity.UserID).Str("action", req.Action).Msg("failed to record activity")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := "started"
	if req.Action == domain.ActionEnd {
		// An end with no open interval still reports "ended"; the client
		// state machine stays simple either way.
		status = "ended"
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Status: status})
}

// editorToday returns the caller's total editing seconds for the current
// IST day.
func (h *Handler) editorToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	seconds, err := h.tracker.TotalSecondsToday(r.Context(), identity.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", identity.UserID).Msg("failed to aggregate daily activity")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, TodayResponse{Seconds: seconds})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	user, session, err := h.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidEmail), errors.Is(err, domain.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.log.Error().Err(err).Msg("failed to register user")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	setSessionCookie(w, session)
	writeJSON(w, http.StatusCreated, UserResponse{UserID: user.ID, Email: user.Email})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	user, session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("failed to log in user")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, UserResponse{UserID: user.ID, Email: user.Email})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if identity.SessionToken != "" {
		if err := h.accounts.Logout(r.Context(), identity.SessionToken); err != nil {
			h.log.Error().Err(err).Msg("failed to delete session")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.accounts.UserByID(r.Context(), identity.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", identity.UserID).Msg("failed to load user")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{UserID: user.ID, Email: user.Email})
}

func (h *Handler) documents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createDocument(w, r)
	case http.MethodGet:
		h.listDocuments(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

func (h *Handler) documentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "missing document id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getDocument(w, r, id)
	case http.MethodPut:
		h.updateDocument(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	doc, err := h.library.CreateDocument(r.Context(), identity.UserID, req.Title, req.Language, req.Content)
	if err != nil {
		if errors.Is(err, domain.ErrMissingTitle) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("user_id", identity.UserID).Msg("failed to create document")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentView(*doc))
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 100 {
				parsed = 100
			}
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	docs, next, err := h.library.ListDocuments(r.Context(), identity.UserID, cursor, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", identity.UserID).Msg("failed to list documents")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]DocumentView, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDocumentView(doc))
	}

	writeJSON(w, http.StatusOK, ListDocumentsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	doc, err := h.library.GetDocument(r.Context(), identity.UserID, id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", identity.UserID).Msg("failed to load document")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toDocumentView(*doc))
}

func (h *Handler) updateDocument(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	doc, err := h.library.UpdateDocument(r.Context(), identity.UserID, id, req.Title, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingTitle):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		default:
			h.log.Error().Err(err).Str("user_id", identity.UserID).Msg("failed to update document")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toDocumentView(*doc))
}

// ActivityRequest is the payload for POST /api/editor/activity.
type ActivityRequest struct {
	Action string `json:"action"`
}

// ActivityResponse reports the applied action.
type ActivityResponse struct {
	Status string `json:"status"`
}

// TodayResponse carries the aggregated seconds for the caller's day.
type TodayResponse struct {
	Seconds int64 `json:"seconds"`
}

// CredentialsRequest is the payload for register and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse describes the authenticated account.
type UserResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// DocumentRequest is the payload for document create and update.
type DocumentRequest struct {
	Title    string `json:"title"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// DocumentView exposes a document to API clients.
type DocumentView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Language  string    `json:"language"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListDocumentsResponse packages list results.
type ListDocumentsResponse struct {
	Items      []DocumentView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func toDocumentView(doc domain.Document) DocumentView {
	return DocumentView{
		ID:        doc.ID,
		Title:     doc.Title,
		Language:  doc.Language,
		Content:   doc.Content,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func setSessionCookie(w http.ResponseWriter, session *domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
