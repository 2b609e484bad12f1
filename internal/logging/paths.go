// Package logging provides command transcript storage for provisioning runs.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathManager handles transcript file path construction and directory
// management.
type PathManager struct {
	baseDir string
}

// NewPathManager creates a new PathManager with the given base directory.
// The base directory is typically ~/.local/share/drover/logs.
func NewPathManager(baseDir string) *PathManager {
	return &PathManager{baseDir: baseDir}
}

// BaseDir returns the base log directory.
func (p *PathManager) BaseDir() string {
	return p.baseDir
}

// RunDir returns the log directory for a specific run.
// Path format: <baseDir>/<runID>/
func (p *PathManager) RunDir(runID string) string {
	return filepath.Join(p.baseDir, runID)
}

// HostLogPath returns the full path for a host's transcript file.
// Path format: <baseDir>/<runID>/<host>.log
func (p *PathManager) HostLogPath(runID, host string) string {
	return filepath.Join(p.baseDir, runID, host+".log")
}

// EnsureRunDir creates the run log directory if it doesn't exist.
// Returns the run directory path.
func (p *PathManager) EnsureRunDir(runID string) (string, error) {
	dir := p.RunDir(runID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create run log directory: %w", err)
	}
	return dir, nil
}

// EnsureHostLog ensures the parent directory exists for a host's transcript.
// Returns the full transcript file path.
func (p *PathManager) EnsureHostLog(runID, host string) (string, error) {
	if _, err := p.EnsureRunDir(runID); err != nil {
		return "", err
	}
	return p.HostLogPath(runID, host), nil
}

// LogExists checks if a transcript file exists for the given host.
func (p *PathManager) LogExists(runID, host string) bool {
	path := p.HostLogPath(runID, host)
	_, err := os.Stat(path)
	return err == nil
}

// RemoveRunLogs removes all transcript files for a run.
func (p *PathManager) RemoveRunLogs(runID string) error {
	dir := p.RunDir(runID)
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove run logs: %w", err)
	}
	return nil
}

// ListHostLogs returns the hosts that have transcript files for the given run.
func (p *PathManager) ListHostLogs(runID string) ([]string, error) {
	dir := p.RunDir(runID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run log directory: %w", err)
	}

	var hosts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ext := filepath.Ext(name); ext == ".log" {
			hosts = append(hosts, name[:len(name)-len(ext)])
		}
	}
	return hosts, nil
}
