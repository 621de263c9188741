package updater

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	backupBinary = "panelnode.backup"
	backupMeta   = "backup.json"
)

type backupInfo struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// backups keeps a single copy of the previous binary.
type backups struct {
	dir    string
	logger *slog.Logger

	mu   sync.RWMutex
	info *backupInfo
}

func openBackups(dir string, logger *slog.Logger) (*backups, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	b := &backups{dir: dir, logger: logger}

	data, err := os.ReadFile(filepath.Join(dir, backupMeta))
	if err != nil {
		return b, nil
	}
	var info backupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		logger.Warn("Ignoring unreadable backup metadata", "error", err)
		return b, nil
	}
	if _, err := os.Stat(filepath.Join(dir, backupBinary)); err != nil {
		logger.Warn("Backup binary missing", "dir", dir)
		return b, nil
	}
	b.info = &info
	return b, nil
}

func (b *backups) save(exe, version string) error {
	if err := copyFile(exe, filepath.Join(b.dir, backupBinary)); err != nil {
		return err
	}
	info := backupInfo{Version: version, CreatedAt: time.Now()}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(b.dir, backupMeta), data, 0o644); err != nil {
		return fmt.Errorf("write backup metadata: %w", err)
	}

	b.mu.Lock()
	b.info = &info
	b.mu.Unlock()
	b.logger.Info("Backup created", "version", version)
	return nil
}

func (b *backups) restore(exe string) error {
	if !b.available() {
		return ErrNoBackup
	}
	if err := copyFile(filepath.Join(b.dir, backupBinary), exe); err != nil {
		return err
	}
	b.logger.Info("Backup restored", "version", b.version())
	return nil
}

func (b *backups) available() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.info != nil
}

func (b *backups) version() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.info == nil {
		return ""
	}
	return b.info.Version
}

// copyFile writes through a temp file and renames it over dst, so a running
// binary is replaced rather than truncated.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".panelnode-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
