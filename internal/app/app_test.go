package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgard/botconsole/internal/app/tasks"
	"github.com/edgard/botconsole/internal/config"
	"github.com/edgard/botconsole/internal/console"
	"github.com/edgard/botconsole/internal/database"
	"github.com/edgard/botconsole/internal/web"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerRegistersEnabledTasks(t *testing.T) {
	t.Parallel()

	noop := func(context.Context) error { return nil }
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"enabled":        {Enabled: true, Schedule: "0 0 * * * *"},
		"disabled":       {Enabled: false, Schedule: "0 0 * * * *"},
		"unregistered":   {Enabled: true, Schedule: "0 0 * * * *"},
		"empty_schedule": {Enabled: true, Schedule: ""},
		"bad_schedule":   {Enabled: true, Schedule: "every day"},
	}}
	registry := map[string]tasks.ScheduledTaskFunc{
		"enabled":        noop,
		"disabled":       noop,
		"empty_schedule": noop,
		"bad_schedule":   noop,
	}

	s, err := NewScheduler(discardLogger(), cfg, registry)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })

	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start() error = nil, want error")
	}

	jobs := s.Jobs()
	if len(jobs) != 1 || jobs[0] != "enabled" {
		t.Errorf("Jobs() = %v, want [enabled]", jobs)
	}
}

func TestSchedulerRunsTask(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)
	registry := map[string]tasks.ScheduledTaskFunc{
		"tick": func(ctx context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return errors.New("failures are logged, not fatal")
		},
	}
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"tick": {Enabled: true, Schedule: "* * * * * *"},
	}}

	s, err := NewScheduler(discardLogger(), cfg, registry)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run")
	}

	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

type recordingStore struct {
	database.Store

	got []database.Activity
}

func (r *recordingStore) RecordActivity(_ context.Context, a *database.Activity) error {
	r.got = append(r.got, *a)
	return nil
}

func TestActivityRecorder(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	rec := NewActivityRecorder(store)
	fixed := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	events := []console.Event{
		{SessionID: "s", Operation: console.KindValidate, Succeeded: true, Duration: 15 * time.Millisecond},
		{SessionID: "s", Operation: console.KindCall, ErrorCode: "APPLICATION", HTTPStatus: 400, Method: "getChat"},
		{SessionID: "s", Operation: console.KindSend, Succeeded: true, Superseded: true},
	}
	for _, ev := range events {
		if err := rec.Record(context.Background(), ev); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	if len(store.got) != 2 {
		t.Fatalf("stored %d rows, want 2 (superseded skipped)", len(store.got))
	}

	want := []database.Activity{
		{SessionID: "s", Operation: "validate", Outcome: database.OutcomeSucceeded, DurationMS: 15, CreatedAtMS: fixed.UnixMilli()},
		{SessionID: "s", Operation: "call", Outcome: database.OutcomeFailed, ErrorCode: "APPLICATION", HTTPStatus: 400, Method: "getChat", CreatedAtMS: fixed.UnixMilli()},
	}
	if !slices.Equal(store.got, want) {
		t.Errorf("stored rows = %+v, want %+v", store.got, want)
	}
}

type fakeServer struct {
	err     error
	started atomic.Bool
}

func (f *fakeServer) Serve(ctx context.Context, ln net.Listener) error {
	f.started.Store(true)
	defer ln.Close()
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func (f *fakeServer) Addr() string { return "127.0.0.1:0" }

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(discardLogger(), &config.SchedulerConfig{}, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	srv := &fakeServer{}
	a := New(discardLogger(), srv, s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !srv.started.Load() {
		t.Error("server was never started")
	}
}

func TestRunReturnsServerError(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(discardLogger(), &config.SchedulerConfig{}, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	boom := errors.New("bind failed")
	a := New(discardLogger(), &fakeServer{err: boom}, s)

	if err := a.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}

func TestRunServesConsole(t *testing.T) {
	t.Parallel()

	registry := console.NewRegistry(console.RegistryOptions{Logger: discardLogger()})
	srv := web.NewServer("127.0.0.1:0", time.Second, web.Deps{
		Registry:   registry,
		BackendURL: "http://localhost:8000",
		Logger:     discardLogger(),
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(discardLogger(), srv, nil).RunListener(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("GET /healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", resp.StatusCode)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("RunListener() error = %v", err)
	}
}
