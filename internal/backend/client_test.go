package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	apperrors "github.com/edgard/botconsole/internal/errors"
)

// recordedRequest captures what the mock backend received.
type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        map[string]json.RawMessage
}

type requestRecorder struct {
	mu   sync.Mutex
	last recordedRequest
}

func (r *requestRecorder) get() recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// newMockBackend answers every request with status and body and records the
// last request it saw.
func newMockBackend(t *testing.T, status int, body string) (*httptest.Server, *requestRecorder, *atomic.Int32) {
	t.Helper()

	rec := &requestRecorder{}
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		data, _ := io.ReadAll(r.Body)
		seen := recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        map[string]json.RawMessage{},
		}
		_ = json.Unmarshal(data, &seen.Body)
		rec.mu.Lock()
		rec.last = seen
		rec.mu.Unlock()

		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, rec, hits
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	c, err := NewClient(baseURL, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("   "); err == nil {
		t.Fatal("expected error for empty base URL")
	}

	c, err := NewClient("http://localhost:8000/")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if got := c.BaseURL(); got != "http://localhost:8000" {
		t.Errorf("BaseURL() = %q, want trailing slash trimmed", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("success decodes bot info", func(t *testing.T) {
		t.Parallel()

		srv, rec, _ := newMockBackend(t, http.StatusOK,
			`{"result":{"id":1,"first_name":"Bo","username":"bo_bot","is_bot":true}}`)
		c := newTestClient(t, srv.URL)

		info, err := c.Validate(context.Background(), "T")
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if info == nil {
			t.Fatal("Validate() returned nil bot info")
		}
		if info.ID != 1 || info.FirstName != "Bo" || info.Username != "bo_bot" || !info.IsBot {
			t.Errorf("Validate() = %+v", info)
		}
		seen := rec.get()
		if seen.Method != http.MethodPost || seen.Path != PathValidate {
			t.Errorf("request = %s %s, want POST %s", seen.Method, seen.Path, PathValidate)
		}
		if seen.ContentType != "application/json" {
			t.Errorf("Content-Type = %q", seen.ContentType)
		}
		if string(seen.Body["token"]) != `"T"` {
			t.Errorf("token field = %s", seen.Body["token"])
		}
	})

	t.Run("missing result yields nil info", func(t *testing.T) {
		t.Parallel()

		srv, _, _ := newMockBackend(t, http.StatusOK, `{}`)
		c := newTestClient(t, srv.URL)

		info, err := c.Validate(context.Background(), "T")
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if info != nil {
			t.Errorf("Validate() = %+v, want nil", info)
		}
	})

	t.Run("wrong result shape is a decode error", func(t *testing.T) {
		t.Parallel()

		srv, _, _ := newMockBackend(t, http.StatusOK, `{"result":"nope"}`)
		c := newTestClient(t, srv.URL)

		_, err := c.Validate(context.Background(), "T")
		if apperrors.Code(err) != apperrors.CodeDecode {
			t.Errorf("Code() = %s, want %s (err = %v)", apperrors.Code(err), apperrors.CodeDecode, err)
		}
	})
}

func TestFailureEnvelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "detail description",
			status:      http.StatusUnauthorized,
			body:        `{"detail":{"description":"bad token"}}`,
			wantMessage: "bad token",
		},
		{
			name:        "detail without description",
			status:      http.StatusBadRequest,
			body:        `{"detail": {"code": 7}}`,
			wantMessage: `{"detail":{"code":7}}`,
		},
		{
			name:        "detail as plain string",
			status:      http.StatusUnprocessableEntity,
			body:        `{"detail":"missing field"}`,
			wantMessage: `{"detail":"missing field"}`,
		},
		{
			name:        "empty description falls back to body",
			status:      http.StatusBadRequest,
			body:        `{"detail":{"description":""}}`,
			wantMessage: `{"detail":{"description":""}}`,
		},
		{
			name:        "non-object body",
			status:      http.StatusInternalServerError,
			body:        `"oops"`,
			wantMessage: `"oops"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _, _ := newMockBackend(t, tt.status, tt.body)
			c := newTestClient(t, srv.URL)

			_, err := c.Validate(context.Background(), "T")
			if err == nil {
				t.Fatal("expected error")
			}

			var backendErr *apperrors.BackendError
			if !apperrors.As(err, &backendErr) {
				t.Fatalf("error type = %T, want *BackendError", err)
			}
			if backendErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", backendErr.Status, tt.status)
			}
			if got := apperrors.Message(err); got != tt.wantMessage {
				t.Errorf("Message() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestTransportFailures(t *testing.T) {
	t.Parallel()

	t.Run("unreachable backend", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c := newTestClient(t, url)
		_, err := c.FetchCommands(context.Background(), "T")
		if apperrors.Code(err) != apperrors.CodeTransport {
			t.Fatalf("Code() = %s, want %s", apperrors.Code(err), apperrors.CodeTransport)
		}
		if apperrors.Message(err) == "" {
			t.Error("expected the transport failure message")
		}
	})

	t.Run("non-JSON body", func(t *testing.T) {
		t.Parallel()

		srv, _, _ := newMockBackend(t, http.StatusBadGateway, `<html>bad gateway</html>`)
		c := newTestClient(t, srv.URL)

		_, err := c.SendMessage(context.Background(), SendMessageRequest{Token: "T", ChatID: "1", Text: "x"})
		if apperrors.Code(err) != apperrors.CodeTransport {
			t.Fatalf("Code() = %s, want %s", apperrors.Code(err), apperrors.CodeTransport)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		srv, _, _ := newMockBackend(t, http.StatusOK, `{"result":true}`)
		c := newTestClient(t, srv.URL)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.SendMessage(ctx, SendMessageRequest{Token: "T", ChatID: "1", Text: "x"})
		if apperrors.Code(err) != apperrors.CodeTransport {
			t.Fatalf("Code() = %s, want %s", apperrors.Code(err), apperrors.CodeTransport)
		}
	})
}

func TestFetchCommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want []Command
	}{
		{name: "absent result", body: `{}`, want: []Command{}},
		{name: "null result", body: `{"result":null}`, want: []Command{}},
		{name: "empty list", body: `{"result":[]}`, want: []Command{}},
		{
			name: "two commands",
			body: `{"result":[{"command":"start","description":"Start"},{"command":"help","description":"Help"}]}`,
			want: []Command{{Command: "start", Description: "Start"}, {Command: "help", Description: "Help"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, rec, _ := newMockBackend(t, http.StatusOK, tt.body)
			c := newTestClient(t, srv.URL)

			got, err := c.FetchCommands(context.Background(), "T")
			if err != nil {
				t.Fatalf("FetchCommands() error = %v", err)
			}
			if got == nil {
				t.Fatal("FetchCommands() returned nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("command[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
			if got := rec.get().Path; got != PathCommands {
				t.Errorf("path = %s, want %s", got, PathCommands)
			}
		})
	}
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	t.Run("chat not found", func(t *testing.T) {
		t.Parallel()

		srv, rec, _ := newMockBackend(t, http.StatusBadRequest, `{"detail":{"description":"chat not found"}}`)
		c := newTestClient(t, srv.URL)

		result, err := c.SendMessage(context.Background(), SendMessageRequest{Token: "T", ChatID: "123", Text: "hi"})
		if result != nil {
			t.Errorf("result = %s, want nil", result)
		}
		if got := apperrors.Message(err); got != "chat not found" {
			t.Errorf("Message() = %q, want %q", got, "chat not found")
		}
		body := rec.get().Body
		if string(body["chat_id"]) != `"123"` || string(body["text"]) != `"hi"` {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("result passed through", func(t *testing.T) {
		t.Parallel()

		srv, _, _ := newMockBackend(t, http.StatusOK, `{"result":{"message_id":42}}`)
		c := newTestClient(t, srv.URL)

		result, err := c.SendMessage(context.Background(), SendMessageRequest{Token: "T", ChatID: "123", Text: "hi"})
		if err != nil {
			t.Fatalf("SendMessage() error = %v", err)
		}
		if string(result) != `{"message_id":42}` {
			t.Errorf("result = %s", result)
		}
	})
}

func TestCallMethod(t *testing.T) {
	t.Parallel()

	srv, rec, _ := newMockBackend(t, http.StatusOK, `{"result":[1,2,3]}`)
	c := newTestClient(t, srv.URL)

	result, err := c.CallMethod(context.Background(), CallMethodRequest{Token: "T", Method: "getMe"})
	if err != nil {
		t.Fatalf("CallMethod() error = %v", err)
	}
	if string(result) != `[1,2,3]` {
		t.Errorf("result = %s", result)
	}
	body := rec.get().Body
	if string(body["params"]) != `{}` {
		t.Errorf("params = %s, want {}", body["params"])
	}
	if string(body["method"]) != `"getMe"` {
		t.Errorf("method = %s", body["method"])
	}
}

func TestParseParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty", input: "", want: `{}`},
		{name: "whitespace", input: " \n\t ", want: `{}`},
		{name: "object", input: `{ "chat_id": 1 }`, want: `{"chat_id":1}`},
		{name: "array", input: `[1, 2]`, want: `[1,2]`},
		{name: "null literal", input: `null`, want: `null`},
		{name: "unterminated object", input: `{invalid`, wantErr: true},
		{name: "trailing garbage", input: `{} x`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseParams(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseParams(%q) expected error", tt.input)
				}
				if apperrors.Message(err) != ParamsErrorMessage {
					t.Errorf("Message() = %q, want %q", apperrors.Message(err), ParamsErrorMessage)
				}
				if apperrors.Code(err) != apperrors.CodeValidation {
					t.Errorf("Code() = %s, want %s", apperrors.Code(err), apperrors.CodeValidation)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseParams(%q) error = %v", tt.input, err)
			}
			if string(got) != tt.want {
				t.Errorf("ParseParams(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}
