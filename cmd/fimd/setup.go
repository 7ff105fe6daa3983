package main

import (
	"bufio"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/wazuh-fim/fimcore/internal/fimcore/contentdiff"
	"github.com/wazuh-fim/fimcore/internal/fimcore/engine"
	"github.com/wazuh-fim/fimcore/internal/fimcore/event"
	"github.com/wazuh-fim/fimcore/internal/fimconfig"
	"github.com/wazuh-fim/fimcore/internal/fimlog"
)

// stdoutSink emits one compact JSON line per event to standard output,
// flushing after every write so a consumer tailing the process sees events
// as they happen. Scheduled scans walk sibling subdirectories concurrently
// (package walk), so writes are serialized with a mutex.
type stdoutSink struct {
	mu     sync.Mutex
	writer *bufio.Writer
}

func newStdoutSink() *stdoutSink {
	return &stdoutSink{writer: bufio.NewWriter(os.Stdout)}
}

func (s *stdoutSink) Send(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writer.WriteString(line); err != nil {
		return err
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return err
	}
	return s.writer.Flush()
}

// loadEngine reads and validates the configuration document at path and
// constructs an Engine ready to scan, reporting the effective file size
// ceiling in human-readable form the way fim_print_info logs scan summaries.
func loadEngine(path string, logger *fimlog.Logger) (*engine.Engine, engine.Config, event.Sink, error) {
	doc, err := fimconfig.LoadDocument(path)
	if err != nil {
		return nil, engine.Config{}, nil, errors.Wrap(err, "unable to load configuration")
	}

	cfg, err := doc.Validate()
	if err != nil {
		return nil, engine.Config{}, nil, errors.Wrap(err, "invalid configuration")
	}

	logger.Infof("loaded %d root(s), file size ceiling %s", len(cfg.Roots), humanize.Bytes(cfg.FileMaxSize))

	sink := newStdoutSink()
	eng := engine.New(cfg, sink, contentdiff.NewMemoryStore(), logger)
	return eng, cfg, sink, nil
}
