package console

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/edgard/botconsole/internal/backend"
	apperrors "github.com/edgard/botconsole/internal/errors"
)

// Default inputs of the Advanced Call panel.
const (
	DefaultMethod = "getMe"
	DefaultParams = "{}"
)

// Backend is the subset of the proxy client a session drives.
type Backend interface {
	Validate(ctx context.Context, token string) (*backend.BotInfo, error)
	FetchCommands(ctx context.Context, token string) ([]backend.Command, error)
	SendMessage(ctx context.Context, req backend.SendMessageRequest) (json.RawMessage, error)
	CallMethod(ctx context.Context, req backend.CallMethodRequest) (json.RawMessage, error)
}

// Event describes one completed operation attempt. It never carries the
// token or any other entered value except the called method name.
type Event struct {
	SessionID  string
	Operation  Kind
	Succeeded  bool
	ErrorCode  string
	HTTPStatus int
	Method     string
	Duration   time.Duration
	Superseded bool
}

// Recorder receives an Event for every completed attempt.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Policy decides which operations of one session may be in flight together.
type Policy string

const (
	// PolicyParallel lets the four panels run independently; only re-entry
	// into an operation that is already loading is refused.
	PolicyParallel Policy = "parallel"
	// PolicyExclusive allows a single in-flight operation per session.
	PolicyExclusive Policy = "exclusive"
)

// SessionOptions configures a new Session.
type SessionOptions struct {
	Backend       Backend
	Recorder      Recorder
	Policy        Policy
	Logger        *slog.Logger
	DefaultMethod string
	DefaultParams string
}

// inputs is a copy of the form fields taken when an attempt starts.
type inputs struct {
	token  string
	chatID string
	text   string
	method string
	params string
}

// Session is the state behind one open console page.
type Session struct {
	id       string
	backend  Backend
	recorder Recorder
	policy   Policy
	log      *slog.Logger

	defaultMethod string
	defaultParams string

	mu       sync.Mutex
	in       inputs
	botInfo  record[*backend.BotInfo]
	commands record[[]backend.Command]
	send     record[json.RawMessage]
	call     record[json.RawMessage]
}

// NewSession creates a session with empty inputs and idle operations.
func NewSession(id string, opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Policy == "" {
		opts.Policy = PolicyParallel
	}
	if opts.DefaultMethod == "" {
		opts.DefaultMethod = DefaultMethod
	}
	if opts.DefaultParams == "" {
		opts.DefaultParams = DefaultParams
	}

	s := &Session{
		id:            id,
		backend:       opts.Backend,
		recorder:      opts.Recorder,
		policy:        opts.Policy,
		log:           opts.Logger.With("component", "console_session", "session_id", id),
		defaultMethod: opts.DefaultMethod,
		defaultParams: opts.DefaultParams,
	}
	s.in = inputs{method: s.defaultMethod, params: s.defaultParams}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SetToken replaces the bot token held for this session.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.in.token = strings.TrimSpace(token)
}

// SetMessage stores the Send Message inputs.
func (s *Session) SetMessage(chatID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.in.chatID = strings.TrimSpace(chatID)
	s.in.text = text
}

// SetCall stores the Advanced Call inputs. The params text is kept raw.
func (s *Session) SetCall(method, params string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.in.method = strings.TrimSpace(method)
	s.in.params = params
}

// Disconnect forgets the token and every operation outcome. Attempts still
// in flight are discarded when they complete.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.in = inputs{method: s.defaultMethod, params: s.defaultParams}
	s.botInfo.reset()
	s.commands.reset()
	s.send.reset()
	s.call.reset()
	s.log.Info("Session disconnected")
}

// Validate checks the token and stores the bot account. A new validation
// also clears the command list, which belonged to the previous token.
func (s *Session) Validate(ctx context.Context) error {
	return execute(ctx, s, KindValidate, &s.botInfo,
		func(ctx context.Context, in inputs) (*backend.BotInfo, error) {
			if in.token == "" {
				return nil, apperrors.NewValidationError("token is required", nil)
			}
			return s.backend.Validate(ctx, in.token)
		},
		s.commands.reset,
	)
}

// FetchCommands loads the bot's command list.
func (s *Session) FetchCommands(ctx context.Context) error {
	return execute(ctx, s, KindCommands, &s.commands,
		func(ctx context.Context, in inputs) ([]backend.Command, error) {
			if in.token == "" {
				return nil, apperrors.NewValidationError("token is required", nil)
			}
			commands, err := s.backend.FetchCommands(ctx, in.token)
			if err == nil && commands == nil {
				commands = []backend.Command{}
			}
			return commands, err
		},
		nil,
	)
}

// SendMessage sends the stored text to the stored chat.
func (s *Session) SendMessage(ctx context.Context) error {
	return execute(ctx, s, KindSend, &s.send,
		func(ctx context.Context, in inputs) (json.RawMessage, error) {
			switch {
			case in.token == "":
				return nil, apperrors.NewValidationError("token is required", nil)
			case in.chatID == "":
				return nil, apperrors.NewValidationError("chat id is required", nil)
			case in.text == "":
				return nil, apperrors.NewValidationError("text is required", nil)
			}
			return s.backend.SendMessage(ctx, backend.SendMessageRequest{
				Token:  in.token,
				ChatID: in.chatID,
				Text:   in.text,
			})
		},
		nil,
	)
}

// CallMethod parses the params text and invokes the stored method. Invalid
// params fail locally without contacting the backend.
func (s *Session) CallMethod(ctx context.Context) error {
	return execute(ctx, s, KindCall, &s.call,
		func(ctx context.Context, in inputs) (json.RawMessage, error) {
			switch {
			case in.token == "":
				return nil, apperrors.NewValidationError("token is required", nil)
			case in.method == "":
				return nil, apperrors.NewValidationError("method is required", nil)
			}
			params, err := backend.ParseParams(in.params)
			if err != nil {
				return nil, err
			}
			return s.backend.CallMethod(ctx, backend.CallMethodRequest{
				Token:  in.token,
				Method: in.method,
				Params: params,
			})
		},
		nil,
	)
}

// execute runs one attempt of an operation. The session lock is held only to
// admit the attempt and to apply its outcome, never across the round trip.
// The returned error is non-nil only when the attempt was refused; the
// outcome itself lives in the record.
func execute[T any](
	ctx context.Context,
	s *Session,
	kind Kind,
	rec *record[T],
	call func(context.Context, inputs) (T, error),
	onStart func(),
) error {
	s.mu.Lock()
	if err := s.admitLocked(rec.loading()); err != nil {
		s.mu.Unlock()
		s.log.DebugContext(ctx, "Operation refused", "operation", kind, "policy", s.policy)
		return err
	}
	gen := rec.start()
	if onStart != nil {
		onStart()
	}
	in := s.in
	s.mu.Unlock()

	startTime := time.Now()
	result, err := call(ctx, in)
	duration := time.Since(startTime)

	s.mu.Lock()
	applied := rec.finish(gen, result, err)
	s.mu.Unlock()

	s.report(ctx, kind, in, err, duration, !applied)
	return nil
}

// admitLocked applies the concurrency policy. self is whether the operation
// being started is already loading.
func (s *Session) admitLocked(self bool) error {
	if self {
		return apperrors.ErrBusy
	}
	if s.policy == PolicyExclusive && s.anyLoadingLocked() {
		return apperrors.ErrBusy
	}
	return nil
}

func (s *Session) anyLoadingLocked() bool {
	return s.botInfo.loading() || s.commands.loading() || s.send.loading() || s.call.loading()
}

func (s *Session) report(ctx context.Context, kind Kind, in inputs, err error, duration time.Duration, superseded bool) {
	ev := Event{
		SessionID:  s.id,
		Operation:  kind,
		Succeeded:  err == nil,
		Duration:   duration,
		Superseded: superseded,
	}
	if kind == KindCall {
		ev.Method = in.method
	}

	log := s.log.With("operation", kind, "duration", duration, "superseded", superseded)
	if err != nil {
		ev.ErrorCode = apperrors.Code(err)
		var backendErr *apperrors.BackendError
		if apperrors.As(err, &backendErr) {
			ev.HTTPStatus = backendErr.Status
		}
		if ev.ErrorCode == apperrors.CodeTransport {
			log.ErrorContext(ctx, "Operation failed", "error_code", ev.ErrorCode, "error", err)
		} else {
			log.WarnContext(ctx, "Operation failed", "error_code", ev.ErrorCode, "error", err)
		}
	} else {
		log.InfoContext(ctx, "Operation succeeded")
	}

	if s.recorder == nil {
		return
	}
	if recErr := s.recorder.Record(context.WithoutCancel(ctx), ev); recErr != nil {
		s.log.WarnContext(ctx, "Failed to record activity", "operation", kind, "error", recErr)
	}
}

// View is an immutable snapshot of a session for rendering.
type View struct {
	SessionID string
	Policy    Policy

	HasToken  bool
	TokenHint string
	ChatID    string
	Text      string
	Method    string
	Params    string

	BotInfo  OperationView[*backend.BotInfo]
	Commands OperationView[[]backend.Command]
	Send     OperationView[json.RawMessage]
	Call     OperationView[json.RawMessage]
}

// Busy reports whether any operation of the session is in flight.
func (v View) Busy() bool {
	return v.BotInfo.Loading() || v.Commands.Loading() || v.Send.Loading() || v.Call.Loading()
}

// Snapshot copies the current state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return View{
		SessionID: s.id,
		Policy:    s.policy,
		HasToken:  s.in.token != "",
		TokenHint: TokenHint(s.in.token),
		ChatID:    s.in.chatID,
		Text:      s.in.text,
		Method:    s.in.method,
		Params:    s.in.params,
		BotInfo:   s.botInfo.view(),
		Commands:  s.commands.view(),
		Send:      s.send.view(),
		Call:      s.call.view(),
	}
}

// TokenHint returns a redacted form of token that is safe to display and log.
func TokenHint(token string) string {
	if token == "" {
		return ""
	}
	if idx := strings.IndexByte(token, ':'); idx > 0 && idx < 16 {
		return fmt.Sprintf("%s:…", token[:idx])
	}
	if len(token) <= 4 {
		return "…"
	}
	return token[:4] + "…"
}
