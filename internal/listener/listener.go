// Package listener watches the dataset drop directory and runs the pipeline
// on every new export file.
package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"kdtboard/internal"
	"kdtboard/internal/config"
	"kdtboard/internal/pipeline"
	"kdtboard/internal/rules"
	"kdtboard/internal/storage"
)

type Service struct {
	db    *storage.DB
	cfg   config.Config
	rules rules.Rules
	log   *logrus.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewService(db *storage.DB, cfg config.Config, r rules.Rules, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{db: db, cfg: cfg, rules: r, log: log, timers: map[string]*time.Timer{}}
}

// Run processes whatever is already in the drop dir, then blocks watching
// for new files until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.DropDir, 0o755); err != nil {
		return err
	}

	if err := s.sweepExisting(); err != nil {
		s.log.WithError(err).Warn("initial drop dir sweep failed")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(s.cfg.DropDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.cfg.DropDir, err)
	}
	s.log.WithField("dir", s.cfg.DropDir).Info("watching dataset drop dir")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isDatasetFile(event.Name) {
				continue
			}
			s.schedule(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.WithError(err).Warn("watcher error")
		}
	}
}

// schedule debounces per path: spreadsheet exports arrive as a burst of
// write events, only the last one matters.
func (s *Service) schedule(path string) {
	debounce := time.Duration(s.cfg.WatcherDebounceMs) * time.Millisecond

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[path]; ok {
		t.Reset(debounce)
		return
	}
	s.timers[path] = time.AfterFunc(debounce, func() {
		s.mu.Lock()
		delete(s.timers, path)
		s.mu.Unlock()

		if err := s.handleFile(path); err != nil {
			s.log.WithError(err).WithField("path", path).Error("dataset processing failed")
		}
	})
}

func (s *Service) sweepExisting() error {
	entries, err := os.ReadDir(s.cfg.DropDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isDatasetFile(entry.Name()) {
			continue
		}
		if err := s.handleFile(filepath.Join(s.cfg.DropDir, entry.Name())); err != nil {
			s.log.WithError(err).WithField("path", entry.Name()).Error("dataset processing failed")
		}
	}
	return nil
}

func (s *Service) handleFile(path string) error {
	processor := pipeline.NewProcessingService(s.db, s.cfg, s.rules, s.log)

	ds, err := processor.IngestFile(path)
	if err != nil {
		return err
	}
	if _, err := processor.ProcessDataset(ds.ID, internal.RevenueMode(s.cfg.RevenueMode), time.Now()); err != nil {
		return err
	}

	if !s.cfg.WatcherAutoExport {
		return nil
	}
	records, err := s.db.ListRecords(ds.ID, "processed")
	if err != nil {
		return err
	}
	out := filepath.Join(s.cfg.OutputDir, "listener", fmt.Sprintf("%d_%s", ds.ID, filepath.Base(path)))
	if err := pipeline.ExportRecordsToXLSX(records, out); err != nil {
		return err
	}
	return s.db.UpdateDatasetStatus(ds.ID, "exported")
}

func isDatasetFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".xlsx")
}
