// Package web serves the bot console page and its form endpoints.
package web

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/edgard/botconsole/internal/console"
	"github.com/edgard/botconsole/internal/database"
	apperrors "github.com/edgard/botconsole/internal/errors"
	"github.com/edgard/botconsole/internal/gemini"
)

// SessionCookie carries the session id. The token itself never leaves the
// process.
const SessionCookie = "console_session"

const healthTimeout = 2 * time.Second

//go:embed templates/index.html
var templatesFS embed.FS

var indexTemplate = template.Must(
	template.New("index.html").Funcs(templateFuncs).ParseFS(templatesFS, "templates/index.html"),
)

// Deps are the collaborators of the console handler.
type Deps struct {
	Registry      *console.Registry
	Store         database.Store // optional, enables activity and health checks
	Drafter       gemini.Drafter // optional, nil disables drafting
	BackendURL    string
	ActivityLimit int
	Logger        *slog.Logger
}

type Handler struct {
	deps Deps
	log  *slog.Logger
}

func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler{deps: deps, log: deps.Logger.With("component", "web")}
}

// Register installs the console routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.serveIndex)
	mux.HandleFunc("GET /healthz", h.serveHealth)
	mux.HandleFunc("POST /validate", h.handleValidate)
	mux.HandleFunc("POST /commands", h.handleCommands)
	mux.HandleFunc("POST /send", h.handleSend)
	mux.HandleFunc("POST /call", h.handleCall)
	mux.HandleFunc("POST /draft", h.handleDraft)
	mux.HandleFunc("POST /disconnect", h.handleDisconnect)
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	h.render(w, r, http.StatusOK, s, pageData{})
}

func (h *Handler) serveHealth(w http.ResponseWriter, r *http.Request) {
	if h.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.deps.Store.Ping(ctx); err != nil {
			h.log.ErrorContext(ctx, "Health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// An empty token field keeps the stored token, since the page never echoes it.
func setTokenFromForm(r *http.Request, s *console.Session) {
	if token := r.PostFormValue("token"); token != "" {
		s.SetToken(token)
	}
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	setTokenFromForm(r, s)
	h.finish(w, r, s.Validate(r.Context()))
}

func (h *Handler) handleCommands(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	setTokenFromForm(r, s)
	h.finish(w, r, s.FetchCommands(r.Context()))
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	s.SetMessage(r.PostFormValue("chat_id"), r.PostFormValue("text"))
	h.finish(w, r, s.SendMessage(r.Context()))
}

func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	s.SetCall(r.PostFormValue("method"), r.PostFormValue("params"))
	h.finish(w, r, s.CallMethod(r.Context()))
}

func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request) {
	if h.deps.Drafter == nil {
		http.NotFound(w, r)
		return
	}

	s := h.session(w, r)
	method := r.PostFormValue("method")
	intent := r.PostFormValue("intent")
	s.SetCall(method, r.PostFormValue("params"))

	params, err := h.deps.Drafter.DraftParams(r.Context(), method, intent)
	if err != nil {
		status := http.StatusBadGateway
		if apperrors.Code(err) == apperrors.CodeValidation {
			status = http.StatusBadRequest
		}
		h.log.WarnContext(r.Context(), "Params draft failed", "method", method, "error_code", apperrors.Code(err), "error", err)
		h.render(w, r, status, s, pageData{DraftError: apperrors.Message(err), Intent: intent})
		return
	}

	s.SetCall(method, params)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	s.Disconnect()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// finish maps the admission result of an operation to a response. The
// operation's own outcome is already in the session and shows up on the page.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.Is(err, apperrors.ErrBusy) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		h.log.ErrorContext(r.Context(), "Operation could not start", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// session returns the caller's session, opening a new one when the cookie
// is missing or its session expired.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *console.Session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if s, ok := h.deps.Registry.Get(c.Value); ok {
			return s
		}
	}

	s := h.deps.Registry.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.ID(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return s
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, s *console.Session, data pageData) {
	data.View = s.Snapshot()
	data.BackendURL = h.deps.BackendURL
	data.DraftEnabled = h.deps.Drafter != nil
	data.Activity = h.recentActivity(r.Context(), s.ID())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, data); err != nil {
		h.log.ErrorContext(r.Context(), "Failed to render page", "error", err)
	}
}

func (h *Handler) recentActivity(ctx context.Context, sessionID string) []activityRow {
	if h.deps.Store == nil || h.deps.ActivityLimit <= 0 {
		return nil
	}
	activities, err := h.deps.Store.RecentActivity(ctx, sessionID, h.deps.ActivityLimit)
	if err != nil {
		h.log.WarnContext(ctx, "Failed to load recent activity", "session_id", sessionID, "error", err)
		return nil
	}
	return newActivityRows(activities)
}
