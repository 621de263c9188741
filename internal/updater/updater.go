// Package updater replaces the running binary with a newer GitHub release and
// keeps one backup of the previous binary for rollback.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/panelnode/internal/version"
)

// State of the update process.
type State string

// Update states.
const (
	StateIdle       State = "idle"
	StateChecking   State = "checking"
	StateAvailable  State = "available"
	StateApplying   State = "applying"
	StateRestarting State = "restarting"
	StateError      State = "error"
	StateRolledBack State = "rolled_back"
)

// DefaultRepository is the GitHub slug releases are fetched from.
const DefaultRepository = "smazurov/panelnode"

var (
	ErrDisabled  = errors.New("updater: disabled")
	ErrBusy      = errors.New("updater: operation not allowed in current state")
	ErrNoRelease = errors.New("updater: repository has no releases")
	ErrNoUpdate  = errors.New("updater: already up to date")
	ErrNoBackup  = errors.New("updater: no backup available")
)

// Release describes the newest published build.
type Release struct {
	Version     string
	Notes       string
	URL         string
	PublishedAt time.Time
	AssetSize   int
	Newer       bool // newer than the running version
}

// Source finds and installs releases.
type Source interface {
	Latest(ctx context.Context, current string) (Release, error)
	Install(ctx context.Context, rel Release, exe string) error
}

// Status is a point-in-time view of the updater.
type Status struct {
	State           State      `json:"state"`
	CurrentVersion  string     `json:"current_version"`
	TargetVersion   string     `json:"target_version,omitempty"`
	Error           string     `json:"error,omitempty"`
	LastChecked     *time.Time `json:"last_checked,omitempty"`
	BackupAvailable bool       `json:"backup_available"`
	BackupVersion   string     `json:"backup_version,omitempty"`
}

// Options configures a Service. Zero values pick defaults.
type Options struct {
	Source     Source       // default GitHub releases of DefaultRepository
	Executable string       // default the running binary
	BackupDir  string       // default $XDG_CACHE_HOME/panelnode/backup
	Restart    func() error // default SIGTERM to self
	// RestartDelay lets the HTTP response go out before the process exits.
	RestartDelay time.Duration
	Logger       *slog.Logger
}

// Service drives check, apply and rollback.
type Service struct {
	source  Source
	exe     string
	backup  *backups
	restart func() error
	delay   time.Duration
	logger  *slog.Logger

	disabledReason string

	mu          sync.Mutex
	state       State
	latest      *Release
	lastChecked *time.Time
	lastErr     error
}

// New creates the update service. A binary in a read-only location yields a
// disabled service rather than an error.
func New(opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		source:  opts.Source,
		exe:     opts.Executable,
		restart: opts.Restart,
		delay:   opts.RestartDelay,
		state:   StateIdle,
		logger:  logger,
	}
	if s.restart == nil {
		s.restart = signalSelf
	}

	if s.exe == "" {
		exe, err := executablePath()
		if err != nil {
			s.disabledReason = err.Error()
			return s, nil
		}
		s.exe = exe
	}
	if reason := writable(filepath.Dir(s.exe)); reason != "" {
		logger.Warn("Update service disabled", "reason", reason)
		s.disabledReason = reason
		return s, nil
	}

	if s.source == nil {
		src, err := NewGitHubSource(DefaultRepository, false)
		if err != nil {
			return nil, err
		}
		s.source = src
	}

	dir := opts.BackupDir
	if dir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("locate cache dir: %w", err)
		}
		dir = filepath.Join(cache, "panelnode", "backup")
	}
	b, err := openBackups(dir, logger)
	if err != nil {
		logger.Warn("Backups unavailable, rollback disabled", "error", err)
	}
	s.backup = b
	return s, nil
}

func writable(dir string) string {
	f, err := os.CreateTemp(dir, ".panelnode-update-*")
	if err != nil {
		return fmt.Sprintf("no write permission to %s: %v", dir, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return ""
}

// Enabled reports whether updates can be applied.
func (s *Service) Enabled() bool { return s.disabledReason == "" }

// DisabledReason is empty when enabled.
func (s *Service) DisabledReason() string { return s.disabledReason }

// Check asks the source for the latest release without downloading it.
func (s *Service) Check(ctx context.Context) (Release, error) {
	if !s.Enabled() {
		return Release{}, fmt.Errorf("%w: %s", ErrDisabled, s.disabledReason)
	}
	if !s.transition(StateChecking, StateIdle, StateAvailable, StateError, StateRolledBack) {
		return Release{}, fmt.Errorf("%w: %s", ErrBusy, s.State())
	}

	rel, err := s.source.Latest(ctx, version.Version)
	now := time.Now()
	s.mu.Lock()
	s.lastChecked = &now
	s.mu.Unlock()
	if err != nil {
		s.fail(err)
		return Release{}, err
	}

	if !rel.Newer {
		s.transition(StateIdle)
		return rel, nil
	}
	s.mu.Lock()
	s.latest = &rel
	s.mu.Unlock()
	s.transition(StateAvailable)
	return rel, nil
}

// Apply installs the latest release and schedules a restart. From idle it
// checks first.
func (s *Service) Apply(ctx context.Context) error {
	if !s.Enabled() {
		return fmt.Errorf("%w: %s", ErrDisabled, s.disabledReason)
	}
	if s.State() != StateAvailable {
		rel, err := s.Check(ctx)
		if err != nil {
			return err
		}
		if !rel.Newer {
			return ErrNoUpdate
		}
	}
	if !s.transition(StateApplying, StateAvailable) {
		return fmt.Errorf("%w: %s", ErrBusy, s.State())
	}

	if s.backup != nil {
		if err := s.backup.save(s.exe, version.Version); err != nil {
			s.fail(err)
			return fmt.Errorf("backup before update: %w", err)
		}
	}

	s.mu.Lock()
	rel := *s.latest
	s.mu.Unlock()

	if err := s.source.Install(ctx, rel, s.exe); err != nil {
		s.fail(err)
		s.autoRollback()
		return fmt.Errorf("install %s: %w", rel.Version, err)
	}

	s.transition(StateRestarting)
	s.logger.Info("Update applied, restarting", "version", rel.Version)
	s.scheduleRestart()
	return nil
}

// Rollback restores the backed-up binary and schedules a restart. It holds
// the applying state while the binary is swapped, so it is rejected with
// ErrBusy during a check or an install.
func (s *Service) Rollback(_ context.Context) error {
	if !s.Enabled() {
		return fmt.Errorf("%w: %s", ErrDisabled, s.disabledReason)
	}
	if s.backup == nil || !s.backup.available() {
		return ErrNoBackup
	}
	if !s.transition(StateApplying, StateIdle, StateAvailable, StateError, StateRestarting, StateRolledBack) {
		return fmt.Errorf("%w: %s", ErrBusy, s.State())
	}
	if err := s.backup.restore(s.exe); err != nil {
		s.fail(err)
		return fmt.Errorf("rollback: %w", err)
	}
	s.transition(StateRolledBack)
	s.logger.Info("Rollback completed, restarting")
	s.scheduleRestart()
	return nil
}

// Status returns the current state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:          s.state,
		CurrentVersion: version.Version,
		LastChecked:    s.lastChecked,
	}
	if s.latest != nil {
		st.TargetVersion = s.latest.Version
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	if s.backup != nil {
		st.BackupAvailable = s.backup.available()
		st.BackupVersion = s.backup.version()
	}
	return st
}

// State returns the current state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves to next if the current state is one of from (any when empty).
func (s *Service) transition(next State, from ...State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(from) > 0 && !slices.Contains(from, s.state) {
		return false
	}
	s.logger.Debug("State transition", "from", s.state, "to", next)
	s.state = next
	s.lastErr = nil
	return true
}

func (s *Service) fail(err error) {
	s.mu.Lock()
	s.state = StateError
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Service) autoRollback() {
	if s.backup == nil || !s.backup.available() {
		s.logger.Error("No backup available for automatic rollback")
		return
	}
	if err := s.backup.restore(s.exe); err != nil {
		s.logger.Error("Automatic rollback failed", "error", err)
		return
	}
	s.transition(StateRolledBack)
	s.logger.Info("Automatic rollback completed")
}

func (s *Service) scheduleRestart() {
	time.AfterFunc(s.delay, func() {
		if err := s.restart(); err != nil {
			s.logger.Error("Restart failed", "error", err)
		}
	})
}

func signalSelf() error {
	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}
