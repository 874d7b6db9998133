// Package supervisor is the composition root: it owns the file-watcher
// substrate's event channels, ticks the health monitor, crash recovery
// manager, memory monitor, and alert manager on a fixed schedule, and
// handles signal-driven graceful shutdown. It contains no policy of its
// own beyond composing the packages that do.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/forgehq/forge/internal/activity"
	"github.com/forgehq/forge/internal/activitylog"
	"github.com/forgehq/forge/internal/alert"
	"github.com/forgehq/forge/internal/crash"
	"github.com/forgehq/forge/internal/ferrors"
	"github.com/forgehq/forge/internal/health"
	"github.com/forgehq/forge/internal/heartbeat"
	"github.com/forgehq/forge/internal/logtail"
	"github.com/forgehq/forge/internal/memory"
	"github.com/forgehq/forge/internal/status"
	"github.com/forgehq/forge/internal/taskstore"
	"github.com/forgehq/forge/internal/usage"
	"github.com/forgehq/forge/internal/watcher"
)

// DefaultTickInterval is how often the scheduler loop re-evaluates every
// worker's health, memory standing, and activity state. It is shorter than
// the 30s nominal heartbeat so a missed beat is visible within one tick.
const DefaultTickInterval = 15 * time.Second

// Config bundles the directories and sub-package configs the supervisor
// wires together.
type Config struct {
	ForgeHome        string
	TaskStoreWorkDir string
	TickInterval     time.Duration
	HealthConfig     health.Config
	ActivityConfig   activity.Config
	MemoryConfig     memory.Config
	CrashConfig      crash.Config
	MaxActiveAlerts  int
	MaxRecoveryTrack int
}

// DefaultConfig returns the documented defaults rooted at forgeHome.
func DefaultConfig(forgeHome string) Config {
	return Config{
		ForgeHome:        forgeHome,
		TaskStoreWorkDir: forgeHome,
		TickInterval:     DefaultTickInterval,
		HealthConfig:     health.DefaultConfig(),
		ActivityConfig:   activity.DefaultConfig(),
		MemoryConfig:     memory.DefaultConfig(),
		CrashConfig:      crash.DefaultConfig(),
		MaxActiveAlerts:  500,
		MaxRecoveryTrack: 3,
	}
}

func (c Config) statusDir() string    { return filepath.Join(c.ForgeHome, "status") }
func (c Config) heartbeatDir() string { return filepath.Join(c.ForgeHome, "heartbeat") }
func (c Config) logsDir() string      { return filepath.Join(c.ForgeHome, "logs") }
func (c Config) lockPath() string     { return filepath.Join(c.ForgeHome, "supervisor.lock") }
func (c Config) pidPath() string      { return filepath.Join(c.ForgeHome, "supervisor.pid") }

// Supervisor composes the status store, heartbeat reader, health monitor,
// crash recovery manager, memory monitor, and alert manager into a single
// scheduled loop over the worker fleet.
type Supervisor struct {
	cfg    Config
	logger *log.Logger
	lock   *flock.Flock

	statusStore     *status.Store
	heartbeatReader *heartbeat.Reader
	taskClient      taskstore.Store
	crashMgr        *crash.Manager
	alertMgr        *alert.Manager
	notifier        *alert.Notifier
	activityLog     *activitylog.Log
	recovery        *health.RecoveryTracker
	fileWatcher     *watcher.Watcher
	logWatcher      *watcher.Watcher

	// tailers is touched only from the Run select loop (and tests), so it
	// needs no lock of its own.
	tailers   map[string]*logtail.Tailer
	usageCalc *usage.Calculator
	metrics   *usage.RealtimeMetrics
	usageLog  *logtail.Aggregate

	mu          sync.Mutex
	memTrackers map[string]*memory.Tracker

	cancel context.CancelFunc
}

// New wires up a Supervisor rooted at cfg.ForgeHome, creating its status and
// heartbeat directories if missing.
func New(cfg Config, logger *log.Logger) (*Supervisor, error) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if logger == nil {
		logger = log.New(os.Stderr, "forge: ", log.LstdFlags)
	}

	statusStore, err := status.NewStore(cfg.statusDir())
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.heartbeatDir(), 0o755); err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, cfg.heartbeatDir(), "creating heartbeat directory", err)
	}
	if err := os.MkdirAll(cfg.logsDir(), 0o755); err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, cfg.logsDir(), "creating logs directory", err)
	}

	taskClient := taskstore.NewClient(cfg.TaskStoreWorkDir)

	watcherCfg := watcher.DefaultConfig(cfg.statusDir())
	fw := watcher.New(watcherCfg)

	logWatcherCfg := watcher.DefaultConfig(cfg.logsDir())
	logWatcherCfg.Suffix = ".log"
	lw := watcher.New(logWatcherCfg)

	usageCalc := usage.NewCalculator(nil, func(raw, normalized string) {
		logger.Printf("usage: unknown model %q (normalized %q), using fallback pricing", raw, normalized)
	})

	return &Supervisor{
		cfg:             cfg,
		logger:          logger,
		lock:            flock.New(cfg.lockPath()),
		statusStore:     statusStore,
		heartbeatReader: heartbeat.NewReader(cfg.heartbeatDir()),
		taskClient:      taskClient,
		crashMgr:        crash.NewManager(cfg.CrashConfig, taskClient),
		alertMgr:        alert.NewManager(cfg.MaxActiveAlerts),
		notifier:        alert.NewNotifier(),
		activityLog:     activitylog.New(),
		recovery:        health.NewRecoveryTracker(cfg.MaxRecoveryTrack),
		fileWatcher:     fw,
		logWatcher:      lw,
		tailers:         make(map[string]*logtail.Tailer),
		usageCalc:       usageCalc,
		metrics:         usage.NewRealtimeMetrics(),
		usageLog:        logtail.NewAggregate(1000),
		memTrackers:     make(map[string]*memory.Tracker),
	}, nil
}

// Alerts returns the alert manager, for a CLI or future UI to read from.
func (s *Supervisor) Alerts() *alert.Manager { return s.alertMgr }

// Notifier returns the bell/flash notifier paired with the alert manager.
func (s *Supervisor) Notifier() *alert.Notifier { return s.notifier }

// ActivityLog returns the ring buffer of supervisor-observed events.
func (s *Supervisor) ActivityLog() *activitylog.Log { return s.activityLog }

// Metrics returns the live API-usage aggregate fed by the log tailers.
func (s *Supervisor) Metrics() *usage.RealtimeMetrics { return s.metrics }

// UsageLog returns the cross-worker ring of recent parsed API calls.
func (s *Supervisor) UsageLog() *logtail.Aggregate { return s.usageLog }

// Run acquires the single-instance lock, starts the status and log watcher
// goroutines, and
// runs the scheduler loop until ctx is canceled or a termination signal
// arrives. Returns an error immediately if another supervisor instance
// already holds the lock.
func (s *Supervisor) Run(ctx context.Context) error {
	locked, err := s.lock.TryLock()
	if err != nil {
		return ferrors.Wrap(ferrors.KindIO, s.cfg.lockPath(), "acquiring supervisor lock", err)
	}
	if !locked {
		return fmt.Errorf("forge supervisor already running (lock held): %s", s.cfg.lockPath())
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := os.WriteFile(s.cfg.pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		s.logger.Printf("warning: writing pid file: %v", err)
	}
	defer func() { _ = os.Remove(s.cfg.pidPath()) }()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	watchDone := make(chan error, 2)
	go func() { watchDone <- s.fileWatcher.Run() }()
	defer s.fileWatcher.Stop()
	go func() { watchDone <- s.logWatcher.Run() }()
	defer s.logWatcher.Stop()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.logger.Printf("supervisor starting (pid %d, tick %s)", os.Getpid(), s.cfg.TickInterval)
	s.tick(runCtx)

	for {
		select {
		case <-runCtx.Done():
			s.logger.Println("supervisor context canceled, shutting down")
			return nil

		case sig := <-sigCh:
			s.logger.Printf("received signal %v, shutting down", sig)
			return nil

		case ev, ok := <-s.fileWatcher.Events():
			if !ok {
				continue
			}
			s.handleWatchEvent(ev)

		case ev, ok := <-s.logWatcher.Events():
			if !ok {
				continue
			}
			s.handleLogEvent(ev)

		case err := <-watchDone:
			if err != nil {
				s.logger.Printf("file watcher exited: %v", err)
			}

		case <-ticker.C:
			s.tick(runCtx)
		}
	}
}

// Stop cancels the running context, if Run was called.
func (s *Supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Supervisor) handleWatchEvent(ev watcher.Event) {
	workerID := workerIDFromPath(ev.Path)
	now := time.Now()
	switch ev.Kind {
	case watcher.Created:
		s.activityLog.Push(activitylog.Entry{Type: activitylog.WorkerSpawn, WorkerID: workerID, Message: "status file appeared", Timestamp: now})
	case watcher.Removed:
		s.activityLog.Push(activitylog.Entry{Type: activitylog.WorkerStop, WorkerID: workerID, Message: "status file removed", Timestamp: now})
	case watcher.Error:
		s.activityLog.Push(activitylog.Entry{Type: activitylog.Error, WorkerID: workerID, Message: ev.Err.Error(), Timestamp: now})
	}
}

// handleLogEvent drives the per-worker tailers off the log-directory watch:
// a Created or Modified event means there may be new lines to read.
func (s *Supervisor) handleLogEvent(ev watcher.Event) {
	switch ev.Kind {
	case watcher.Created, watcher.Modified:
		s.tailWorkerLog(ev.Path)
	case watcher.Removed:
		delete(s.tailers, workerIDFromPath(ev.Path))
	case watcher.Error:
		s.logger.Printf("log watcher: %v", ev.Err)
	}
}

func (s *Supervisor) tailWorkerLog(path string) {
	workerID := workerIDFromPath(path)
	tailer, ok := s.tailers[workerID]
	if !ok {
		tailer = logtail.New(path, workerID, s.usageCalc)
		s.tailers[workerID] = tailer
	}

	calls, err := tailer.ReadNewLines()
	if err != nil {
		s.logger.Printf("tailing %s: %v", path, err)
		return
	}

	now := time.Now()
	for _, call := range calls {
		s.metrics.Record(call, now)
		s.usageLog.Push(call)
		s.activityLog.Push(activitylog.Entry{
			Type:      activitylog.ApiCall,
			WorkerID:  call.WorkerID,
			Message:   fmt.Sprintf("%s $%.4f", usage.NormalizeModelName(call.Model), call.CostUSD),
			Timestamp: now,
		})
	}
}

func workerIDFromPath(path string) string {
	name := filepath.Base(path)
	return name[:len(name)-len(filepath.Ext(name))]
}

// tick runs one scheduler pass over every worker with a status file:
// assembles a health.WorkerSnapshot, runs the composite health check, feeds
// failures to the crash manager and alert manager, and records a memory
// sample for the runaway check.
func (s *Supervisor) tick(ctx context.Context) {
	infos, parseErrs, err := s.statusStore.ReadAll()
	if err != nil {
		s.logger.Printf("tick: reading status directory: %v", err)
		return
	}
	for _, pe := range parseErrs {
		s.logger.Printf("tick: skipping unparseable status file %s: %v", pe.Path, pe.Err)
	}

	now := time.Now()
	activeIDs := make(map[string]bool, len(infos))
	for _, info := range infos {
		activeIDs[info.WorkerID] = true
		s.tickWorker(ctx, info, now)
	}

	removed, err := s.heartbeatReader.CleanupStaleHeartbeats(activeIDs)
	if err != nil {
		s.logger.Printf("tick: cleaning stale heartbeats: %v", err)
	}
	for _, id := range removed {
		s.logger.Printf("tick: removed stale heartbeat for departed worker %s", id)
	}
}

func (s *Supervisor) tickWorker(ctx context.Context, info *status.Info, now time.Time) {
	hb := s.heartbeatReader.ReadHeartbeat(info.WorkerID)

	exists, _, rssMB := health.InspectProcess(ctx, info.PID)

	tracker := s.trackerFor(info.WorkerID)
	if rssMB > 0 {
		tracker.Record(rssMB, now)
	}

	var lastActivity *time.Time
	if !info.LastActivity.IsZero() {
		t := info.LastActivity
		lastActivity = &t
	}
	if hb != nil && (lastActivity == nil || hb.Timestamp.After(*lastActivity)) {
		t := hb.Timestamp
		lastActivity = &t
	}

	snap := health.WorkerSnapshot{
		WorkerID:      info.WorkerID,
		PID:           info.PID,
		ProcessExists: exists,
		IsActiveState: info.Status == status.StateActive,
		IsStarting:    info.Status == status.StateStarting,
		HasTask:       info.CurrentTask != "",
		LastActivity:  lastActivity,
		RSSMb:         tracker.Latest(),
	}
	if exists && s.crashMgr.IsCrashed(info.WorkerID) {
		s.crashMgr.MarkRecovered(info.WorkerID)
		s.recovery.Reset(info.WorkerID)
		s.activityLog.Push(activitylog.Entry{Type: activitylog.WorkerTransition, WorkerID: info.WorkerID, Message: "worker recovered", Timestamp: now})
	}

	report := health.Run(snap, s.cfg.HealthConfig, now)

	if report.Score() < 1.0 {
		s.raiseAlertsFromReport(info.WorkerID, report, now)
	}

	action := s.crashMgr.HandleCrash(ctx, info.WorkerID, report, info.Workspace, info.CurrentTask)
	switch action {
	case crash.ActionRestart:
		s.activityLog.Push(activitylog.Entry{Type: activitylog.WorkerTransition, WorkerID: info.WorkerID, Message: "crash detected, restart requested", Timestamp: now})
		s.recovery.RecordAttempt(info.WorkerID)
	case crash.ActionNotifyOnly:
		s.activityLog.Push(activitylog.Entry{Type: activitylog.Error, WorkerID: info.WorkerID, Message: "crash detected, auto-restart suppressed", Timestamp: now})
	}

	if tracker.CheckRunaway(info.WorkerID) {
		a := s.alertMgr.Raise(info.WorkerID, "memory_runaway", alert.SeverityCritical,
			"Worker exceeded memory kill limit",
			fmt.Sprintf("RSS %.0fMB exceeds configured limit", tracker.Latest()), now)
		s.notifier.Notify(a, now)
	}
}

func (s *Supervisor) raiseAlertsFromReport(workerID string, report *health.Report, now time.Time) {
	for _, c := range report.Checks {
		if c.Status != health.StatusFailed {
			continue
		}
		severity := alert.SeverityWarning
		if c.Kind == health.FailureDeadProcess {
			severity = alert.SeverityCritical
		}
		a := s.alertMgr.Raise(workerID, string(c.Kind), severity, c.Name, c.Message, now)
		s.notifier.Notify(a, now)
	}
}

// WorkerCounts is the fleet summary read model a UI or CLI binds to.
type WorkerCounts struct {
	Total   int
	Active  int
	Idle    int
	Paused  int
	Failed  int
	Stopped int
}

// CountWorkers reads the status directory and buckets workers by state.
// Failed covers both the Failed and Error self-reported states.
func (s *Supervisor) CountWorkers() (WorkerCounts, error) {
	infos, _, err := s.statusStore.ReadAll()
	if err != nil {
		return WorkerCounts{}, err
	}
	counts := WorkerCounts{Total: len(infos)}
	for _, info := range infos {
		switch info.Status {
		case status.StateActive, status.StateStarting:
			counts.Active++
		case status.StateIdle:
			counts.Idle++
		case status.StatePaused:
			counts.Paused++
		case status.StateFailed, status.StateError:
			counts.Failed++
		case status.StateStopped:
			counts.Stopped++
		}
	}
	return counts, nil
}

func (s *Supervisor) trackerFor(workerID string) *memory.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.memTrackers[workerID]
	if !ok {
		t = memory.NewTracker(s.cfg.MemoryConfig)
		s.memTrackers[workerID] = t
	}
	return t
}
