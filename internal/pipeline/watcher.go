package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay lets a dropped file finish writing before it is processed.
// Editors and scripts often emit several Write events per save.
const settleDelay = 500 * time.Millisecond

// Watch starts an fsnotify watcher on the intake folder and feeds detected
// prompts into a single-consumer queue. Processing is strictly serialized
// in detection order, so watch mode behaves like a rolling batch run and
// never issues concurrent LLM requests.
//
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, p *Processor, workspaceRoot string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	intakeAbs := filepath.Join(workspaceRoot, p.cfg.Layout.Intake)
	if err := os.MkdirAll(intakeAbs, 0o755); err != nil {
		return err
	}
	if err := w.Add(intakeAbs); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("intake", intakeAbs))

	queue := make(chan string, 256)

	// Single consumer: one prompt fully processed before the next begins.
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case name := <-queue:
				if !p.cfg.Store.Exists(filepath.Join(p.cfg.Layout.Intake, name)) {
					// Already archived or removed between detection and now.
					continue
				}
				if _, procErr := p.Process(ctx, name); procErr != nil {
					logger.Warn("watcher: prompt failed",
						slog.String("prompt", name),
						slog.String("error", procErr.Error()))
				}
			}
		}
	}()

	// Per-file settle timers debounce bursts of Write events.
	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	enqueue := func(name string) {
		select {
		case queue <- name:
		default:
			logger.Warn("watcher: queue full, dropping event", slog.String("prompt", name))
		}
	}

	schedule := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[name]; ok {
			t.Reset(settleDelay)
			return
		}
		pending[name] = time.AfterFunc(settleDelay, func() {
			mu.Lock()
			delete(pending, name)
			mu.Unlock()
			enqueue(name)
		})
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
			<-consumerDone
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !EligibleExt(name) {
				continue
			}
			schedule(name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
