// Package whodata is the audit-correlated detection-mode adapter: it
// enriches filesystem change events with the originating user and process
// (spec.md §5, ModeWhodata) and performs the startup handshake that proves
// the audit backend actually delivers events before the engine trusts it.
//
// The handshake is grounded on audit_healthcheck.c: create a sentinel file,
// cycle it open and closed until a matching audit record arrives or a timeout
// elapses, then fall back to scheduled-only monitoring on failure.
package whodata

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/wazuh-fim/fimcore/internal/fimlog"
)

// Event is a single audit-backend notification, carrying the actor
// attribution that distinguishes whodata from a plain realtime event.
type Event struct {
	Path  string
	Audit map[string]interface{}
}

// Source delivers audit-backend events until Close or context cancellation.
// A concrete implementation wraps whatever the host's audit subsystem is
// (netlink audit, eBPF, a vendor agent); this package only depends on the
// interface so it can be exercised with a fake in tests.
type Source interface {
	// Events returns a channel of audit notifications. It is closed when
	// the source stops.
	Events() <-chan Event
	// Run drives the source until ctx is canceled.
	Run(ctx context.Context) error
	Close() error
}

// Handler processes a single audit-correlated intake event.
type Handler func(ctx context.Context, path string, audit map[string]interface{}) error

// Adapter pumps events from a Source into a Handler, the whodata analogue of
// fswatch.Watcher.
type Adapter struct {
	source Source
	logger *fimlog.Logger
}

// New constructs an Adapter over source.
func New(source Source, logger *fimlog.Logger) *Adapter {
	if logger == nil {
		logger = fimlog.RootLogger
	}
	return &Adapter{source: source, logger: logger.Sublogger("whodata")}
}

// Run drives the event pump until ctx is canceled or the source closes its
// channel.
func (a *Adapter) Run(ctx context.Context, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-a.source.Events():
			if !ok {
				return nil
			}
			if err := handle(ctx, ev.Path, ev.Audit); err != nil {
				a.logger.Debugf("intake handler failed for %s: %v", ev.Path, err)
			}
		}
	}
}

// HealthcheckConfig controls the startup handshake.
type HealthcheckConfig struct {
	// Dir is the directory the sentinel file is created in. It must already
	// be covered by an audit watch rule.
	Dir string
	// Timeout bounds how long the handshake waits for a matching event
	// before declaring the audit backend unusable.
	Timeout time.Duration
	// Interval is the delay between open/close cycles while waiting.
	Interval time.Duration
}

// DefaultInterval mirrors audit_healthcheck.c's one-second retry cadence.
const DefaultInterval = time.Second

// Healthcheck proves that source actually delivers events for filesystem
// activity under cfg.Dir: it repeatedly creates (or reopens) and closes a
// uniquely named sentinel file, watching source's event stream for a
// matching path, until either a match arrives or cfg.Timeout elapses; the
// sentinel is removed when the handshake returns. It reports success or
// failure; callers fall back to scheduled-only monitoring on failure, per
// spec.md §5.
func Healthcheck(ctx context.Context, source Source, cfg HealthcheckConfig) error {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	sentinel := filepath.Join(cfg.Dir, ".fim-whodata-healthcheck-"+uuid.NewString())
	defer os.Remove(sentinel)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	events := source.Events()

	for {
		if err := cycleSentinel(sentinel); err != nil {
			return errors.Wrap(err, "unable to create healthcheck sentinel file")
		}

		select {
		case <-ctx.Done():
			return errors.New("whodata healthcheck timed out waiting for a matching audit event")
		case ev, ok := <-events:
			if ok && ev.Path == sentinel {
				return nil
			}
		case <-ticker.C:
		}
	}
}

// cycleSentinel creates and immediately closes path, generating the
// open/create notification the audit backend is expected to report back.
func cycleSentinel(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return f.Close()
}
