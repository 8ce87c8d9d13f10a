package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"

	eventqueue "github.com/okian/xcleague/internal/adapters/mq/queue"
	"github.com/okian/xcleague/pkg/logger"
	"github.com/okian/xcleague/pkg/metrics"
)

// Watch re-runs the pipeline for the rounds whose raw files change. Changes
// pass through a bounded queue and are debounced so an export copied in
// several writes triggers one run. Watch returns nil once ctx is done.
func (s *Service) Watch(ctx context.Context, rounds []string) error {
	selected, err := s.league.SelectRounds(rounds)
	if err != nil {
		return err
	}
	if st, err := os.Stat(s.inputDir); err != nil || !st.IsDir() {
		return fmt.Errorf("%w: %s", ErrNoInputDir, s.inputDir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.inputDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.inputDir, err)
	}
	for _, round := range selected {
		dir := filepath.Join(s.inputDir, round)
		if err := watcher.Add(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	defer q.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := s.logger.Named("watch")
	log.Info(ctx, "watching for race files",
		logger.String("dir", s.inputDir),
		logger.Strings("rounds", selected),
		logger.Duration("debounce", s.debounce),
	)

	w := &roundWatcher{
		root:    s.inputDir,
		rounds:  lo.SliceToMap(selected, func(r string) (string, bool) { return r, true }),
		watcher: watcher,
		queue:   q,
		logger:  log,
	}
	go w.forward(ctx)

	return s.debounceRuns(ctx, q.Dequeue(ctx), selected)
}

// debounceRuns collects changed rounds until the queue has been quiet for
// the debounce period, then runs the pipeline over them.
func (s *Service) debounceRuns(ctx context.Context, changes <-chan eventqueue.Change, order []string) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			pending[c.Round] = true
			timer.Reset(s.debounce)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			rounds := lo.Filter(order, func(r string, _ int) bool { return pending[r] })
			clear(pending)
			if _, err := s.Run(ctx, rounds); err != nil {
				// Already logged by Run; the next change triggers another attempt.
				metrics.RecordErrorByComponent("watch", "run")
			}
		}
	}
}

// roundWatcher turns file system events under root into queued changes.
type roundWatcher struct {
	root    string
	rounds  map[string]bool
	watcher *fsnotify.Watcher
	queue   eventqueue.Queue
	logger  logger.Logger
}

func (w *roundWatcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if c, ok := w.change(ev); ok {
				if !w.queue.Enqueue(ctx, c) {
					w.logger.Warn(ctx, "change dropped", logger.String("path", c.Path))
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			metrics.RecordErrorByComponent("watch", "fsnotify")
			w.logger.Error(ctx, "watcher error", logger.Error(err))
		}
	}
}

// change maps an event to a round change. A newly created round directory
// is added to the watch list and reported so files already copied into it
// are picked up.
func (w *roundWatcher) change(ev fsnotify.Event) (eventqueue.Change, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return eventqueue.Change{}, false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return eventqueue.Change{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if !w.rounds[parts[0]] {
		return eventqueue.Change{}, false
	}
	c := eventqueue.Change{Round: parts[0], Path: ev.Name, Op: ev.Op.String(), At: time.Now()}

	switch len(parts) {
	case 1:
		if !ev.Has(fsnotify.Create) {
			return eventqueue.Change{}, false
		}
		if st, err := os.Stat(ev.Name); err != nil || !st.IsDir() {
			return eventqueue.Change{}, false
		}
		if err := w.watcher.Add(ev.Name); err != nil {
			w.logger.Error(context.Background(), "cannot watch round", logger.String("dir", ev.Name), logger.Error(err))
			return eventqueue.Change{}, false
		}
		return c, true
	case 2:
		race, ok := raceName(parts[1])
		if !ok {
			return eventqueue.Change{}, false
		}
		c.Race = race
		return c, true
	default:
		return eventqueue.Change{}, false
	}
}
