// Package process implements the process supervisor. It owns every child
// helper process this core spawns, guarantees at most one running instance
// per id, captures stdout/stderr without losing early output, and
// serialises every stop against a single exclusive lock to eliminate
// check/stop races.
package process

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/errkit"
	"github.com/whitebite/isolate-core/internal/logging"
	"github.com/whitebite/isolate-core/internal/metrics"
	"github.com/whitebite/isolate-core/internal/process/limits"
)

const (
	outputChannelCapacity = 1000
	readerReadyCeiling    = 100 * time.Millisecond
	gracefulStopCeiling   = 3 * time.Second
)

// entry is the supervisor's internal bookkeeping for one managed process.
type entry struct {
	id            string
	correlationID string // tags every log line for this process so its output can be correlated across streams
	cmd           *exec.Cmd
	state         domain.ProcessState
	mu            sync.Mutex
	outCh         chan domain.OutputLine
	done          chan struct{} // closed once the process has been reaped
}

func (e *entry) setState(s domain.ProcessState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *entry) getState() domain.ProcessState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Supervisor is the process-wide id→process map. The map itself is guarded
// by a sync.RWMutex, which is not reader-preferring (a waiting writer blocks
// new readers); a single exclusive stopMu serialises every
// stop/stop-if-running call across all ids.
type Supervisor struct {
	mu      sync.RWMutex
	procs   map[string]*entry
	stopMu  sync.Mutex
	log     *logging.Logger
}

// New creates an empty Supervisor.
func New(log *logging.Logger) *Supervisor {
	if log == nil {
		log = logging.NewDefault("process")
	}
	return &Supervisor{procs: make(map[string]*entry), log: log}
}

// Spawn starts a child process for spec. It fails if a process with the
// same id is already running, or if the binary does not exist. It does not
// return until each of stdout/stderr has emitted a "ready" signal (or its
// 100ms ceiling elapses), so that processes which exit within milliseconds
// don't lose their output.
func (s *Supervisor) Spawn(ctx context.Context, spec domain.ProcessSpec) (*domain.OutputSubscription, error) {
	s.mu.Lock()
	if existing, ok := s.procs[spec.ID]; ok && existing.getState() == domain.ProcessRunning {
		s.mu.Unlock()
		return nil, errkit.ProcessError("process '" + spec.ID + "' is already running")
	}
	s.mu.Unlock()

	if _, err := os.Stat(spec.Binary); err != nil {
		metrics.RecordSpawn("binary-missing")
		return nil, errkit.ProcessError("binary does not exist: " + spec.Binary)
	}

	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...)
	if spec.WorkingDir != "" {
		cmd.Dir = spec.WorkingDir
	}
	if len(spec.Env) > 0 {
		env := os.Environ()
		for k, v := range spec.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errkit.Wrap(errkit.KindProcess, "stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errkit.Wrap(errkit.KindProcess, "stderr pipe", err)
	}

	e := &entry{id: spec.ID, correlationID: uuid.NewString(), cmd: cmd, state: domain.ProcessStarting,
		outCh: make(chan domain.OutputLine, outputChannelCapacity), done: make(chan struct{})}

	if err := cmd.Start(); err != nil {
		metrics.RecordSpawn("start-failed")
		return nil, errkit.Wrap(errkit.KindProcess, "spawn failed", err)
	}
	metrics.RecordSpawn("started")
	s.log.WithField("id", spec.ID).WithField("correlation_id", e.correlationID).Info("process spawned")

	if l, ok := spec.Limits.(limits.Limits); ok && l.HasLimits() {
		if err := limits.Apply(cmd.Process.Pid, l); err != nil {
			s.log.WithField("id", spec.ID).WithField("correlation_id", e.correlationID).WithError(err).Warn("failed to apply resource limits")
		}
	}

	stdoutReady := make(chan struct{})
	stderrReady := make(chan struct{})
	go e.pumpLines(stdout, domain.StreamStdout, stdoutReady)
	go e.pumpLines(stderr, domain.StreamStderr, stderrReady)
	waitForReady(stdoutReady)
	waitForReady(stderrReady)

	e.setState(domain.ProcessRunning)

	s.mu.Lock()
	s.procs[spec.ID] = e
	s.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		e.setState(domain.ProcessStopped)
		close(e.done)
	}()

	return &domain.OutputSubscription{Channel: e.outCh}, nil
}

// waitForReady blocks until ready fires or the 100ms ceiling elapses,
// whichever comes first — a reader that never emits a line (e.g. a process
// that writes nothing before exiting) must not stall spawn forever.
func waitForReady(ready <-chan struct{}) {
	select {
	case <-ready:
	case <-time.After(readerReadyCeiling):
	}
}

// pumpLines reads lines from r and pushes them to the output channel,
// closing ready on the first line (or at EOF if none arrive).
func (e *entry) pumpLines(r io.Reader, stream domain.OutputStream, ready chan<- struct{}) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	signalled := false
	signal := func() {
		if !signalled {
			signalled = true
			close(ready)
		}
	}
	for scanner.Scan() {
		signal()
		line := domain.OutputLine{Stream: stream, Line: scanner.Text(), Timestamp: time.Now().UTC()}
		select {
		case e.outCh <- line:
		default:
			// channel full: drop this line rather than blocking the
			// reader goroutine indefinitely.
		}
	}
	signal()
}

// Stop gracefully stops the process identified by id. It is idempotent:
// stopping an absent id is success.
func (s *Supervisor) Stop(ctx context.Context, id string) error {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	s.mu.RLock()
	e, ok := s.procs[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	e.setState(domain.ProcessStopping)
	if err := terminateGracefully(e.cmd); err != nil {
		s.log.WithField("id", id).WithField("correlation_id", e.correlationID).WithError(err).Warn("graceful terminate failed, will force-kill")
	}

	select {
	case <-e.done:
	case <-time.After(gracefulStopCeiling):
		if e.cmd.Process != nil {
			_ = e.cmd.Process.Kill()
		}
		<-e.done
	}

	s.mu.Lock()
	delete(s.procs, id)
	s.mu.Unlock()
	return nil
}

// StopIfRunning stops the process if one is running, returning whether it
// actually stopped anything.
func (s *Supervisor) StopIfRunning(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	_, ok := s.procs[id]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := s.Stop(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// IsRunning reports whether id names a currently-running process.
func (s *Supervisor) IsRunning(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.procs[id]
	return ok && e.getState() == domain.ProcessRunning
}

// State returns the current state of id, or ProcessStopped if unknown.
func (s *Supervisor) State(id string) domain.ProcessState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.procs[id]
	if !ok {
		return domain.ProcessStopped
	}
	return e.getState()
}

// List returns the ids of all currently tracked processes.
func (s *Supervisor) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.procs))
	for id := range s.procs {
		ids = append(ids, id)
	}
	return ids
}

// StopAll stops every tracked process, used during graceful supervisor
// shutdown.
func (s *Supervisor) StopAll(ctx context.Context) {
	for _, id := range s.List() {
		_ = s.Stop(ctx, id)
	}
}
