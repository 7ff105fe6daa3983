package whodata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSource watches dir with fsnotify-free polling and reports every file
// it sees created, so tests don't depend on a real audit backend.
type fakeSource struct {
	dir    string
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func newFakeSource(dir string) *fakeSource {
	return &fakeSource{dir: dir, events: make(chan Event, 16), done: make(chan struct{})}
}

func (s *fakeSource) Events() <-chan Event { return s.events }

func (s *fakeSource) Run(ctx context.Context) error {
	seen := map[string]bool{}
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			close(s.events)
			return nil
		case <-s.done:
			close(s.events)
			return nil
		case <-ticker.C:
			entries, err := os.ReadDir(s.dir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				path := filepath.Join(s.dir, e.Name())
				if seen[path] {
					continue
				}
				seen[path] = true
				select {
				case s.events <- Event{Path: path, Audit: map[string]interface{}{"user_name": "root"}}:
				default:
				}
			}
		}
	}
}

func (s *fakeSource) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func TestHealthcheckSucceedsWhenSourceReportsSentinel(t *testing.T) {
	dir := t.TempDir()
	src := newFakeSource(dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go src.Run(ctx)
	defer src.Close()

	err := Healthcheck(context.Background(), src, HealthcheckConfig{
		Dir:      dir,
		Timeout:  2 * time.Second,
		Interval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
}

// deadSource never reports any event, simulating a non-functional audit
// backend so the handshake must time out and report failure.
type deadSource struct {
	events chan Event
}

func newDeadSource() *deadSource { return &deadSource{events: make(chan Event)} }

func (s *deadSource) Events() <-chan Event     { return s.events }
func (s *deadSource) Run(ctx context.Context) error { <-ctx.Done(); return nil }
func (s *deadSource) Close() error             { return nil }

func TestHealthcheckFailsOnTimeout(t *testing.T) {
	dir := t.TempDir()
	src := newDeadSource()

	err := Healthcheck(context.Background(), src, HealthcheckConfig{
		Dir:      dir,
		Timeout:  50 * time.Millisecond,
		Interval: 10 * time.Millisecond,
	})
	require.Error(t, err)
}

func TestAdapterRunInvokesHandlerWithAuditPayload(t *testing.T) {
	src := &fakeSource{events: make(chan Event, 1)}
	a := New(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var got Event
	done := make(chan struct{})
	go func() {
		_ = a.Run(ctx, func(ctx context.Context, path string, audit map[string]interface{}) error {
			got = Event{Path: path, Audit: audit}
			close(done)
			return nil
		})
	}()

	src.events <- Event{Path: "/etc/passwd", Audit: map[string]interface{}{"user_name": "root"}}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
	cancel()

	require.True(t, strings.HasSuffix(got.Path, "passwd"))
	require.Equal(t, "root", got.Audit["user_name"])
}
