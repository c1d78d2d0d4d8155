package openvidu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LingByte/LingVidu/pkg/constants"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Watcher fetches a Client on a cron schedule. Runs that would overlap a
// still running fetch are skipped.
type Watcher struct {
	client   *Client
	spec     string
	timeout  time.Duration
	logger   *zap.Logger
	cron     *cron.Cron
	onChange func(*Client)

	mu      sync.Mutex
	running bool
}

// WatcherOption configures NewWatcher
type WatcherOption struct {
	Spec     string        // cron spec, defaults to "@every 5s"
	Timeout  time.Duration // per fetch, defaults to the client read timeout default
	OnChange func(*Client) // called after a fetch that changed the cache
}

// cronLogger routes cron's own messages to zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewWatcher validates the schedule and prepares a stopped watcher
func NewWatcher(client *Client, opt WatcherOption) (*Watcher, error) {
	if client == nil {
		return nil, invalidArgumentf("client is required")
	}
	spec := opt.Spec
	if spec == "" {
		spec = constants.DefaultWatchSpec
	}
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultTimeout
	}
	lg := client.g.logger.Named("watcher")
	cl := cronLogger{s: lg.Sugar()}

	w := &Watcher{
		client:   client,
		spec:     spec,
		timeout:  timeout,
		logger:   lg,
		onChange: opt.OnChange,
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
	}
	if _, err := w.cron.AddFunc(spec, w.tick); err != nil {
		return nil, invalidArgumentf("invalid watch spec %q: %v", spec, err)
	}
	return w, nil
}

// Start begins the schedule. Calling Start on a running watcher does nothing.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.cron.Start()
	w.logger.Info("watcher started", zap.String("spec", w.spec))
}

// Stop halts the schedule and waits for a running fetch to finish or ctx to end
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	done := w.cron.Stop()
	select {
	case <-done.Done():
		w.logger.Info("watcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop watcher: %w", ctx.Err())
	}
}

// RunOnce performs one scheduled fetch immediately
func (w *Watcher) RunOnce(ctx context.Context) (bool, error) {
	changed, err := w.client.Fetch(ctx)
	if err != nil {
		w.logger.Warn("fetch failed", zap.Error(err))
		return false, err
	}
	if !changed {
		return false, nil
	}
	w.logger.Info("sessions changed", zap.Int("sessions", w.client.SessionCount()))
	if w.onChange != nil {
		w.onChange(w.client)
	}
	return true, nil
}

func (w *Watcher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	_, _ = w.RunOnce(ctx)
}
