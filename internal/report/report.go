// Package report provides persistent storage for provisioning run reports.
package report

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for report operations.
var (
	ErrNotFound      = errors.New("report not found")
	ErrAlreadyExists = errors.New("report already exists")
	ErrLockTimeout   = errors.New("failed to acquire report lock")
)

// Status represents the run lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusConverged Status = "converged"
	StatusFailed    Status = "failed"
)

// RoleStatus represents the outcome of a single role within a run.
type RoleStatus string

const (
	RoleConverged RoleStatus = "converged"
	RoleFailed    RoleStatus = "failed"
	RoleSkipped   RoleStatus = "skipped"
)

// RoleResult records the outcome of one role application.
type RoleResult struct {
	Name     string        `json:"name"`     // Registered role name
	Status   RoleStatus    `json:"status"`   // Outcome (converged, failed, skipped)
	Duration time.Duration `json:"duration"` // Wall-clock time spent in Provision
	Error    string        `json:"error"`    // Failure message (empty on success)
}

// Entry represents one host's provisioning record within a run.
type Entry struct {
	ID         string       `json:"id"`
	RunID      string       `json:"run_id"`      // Shared by every host entry of one run
	Name       string       `json:"name"`        // Human-readable record name (e.g., "bold-mare")
	Group      string       `json:"group"`       // Manifest server group
	Host       string       `json:"host"`        // Target host address
	User       string       `json:"user"`        // Remote user the run executed as
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"` // Zero while the run is in flight
	Status     Status       `json:"status"`
	Roles      []RoleResult `json:"roles"`      // Per-role outcomes, in application order
	Transcript string       `json:"transcript"` // Path to the command transcript log
	Error      string       `json:"error"`      // Host-level failure message
}

// ListFilter filters report queries.
type ListFilter struct {
	RunID  string // Filter by run (empty = all)
	Group  string // Filter by manifest group (empty = all)
	Host   string // Filter by host (empty = all)
	Status Status // Filter by status (empty = all)
}

// Store provides persistent storage for run report entries.
//
//go:generate go run github.com/matryer/moq@latest -pkg mocks -out mocks/store.go . Store
type Store interface {
	// Add creates a new entry.
	// Returns ErrAlreadyExists if an entry with the same ID already exists.
	Add(ctx context.Context, entry Entry) error

	// Get retrieves an entry by ID.
	// Returns ErrNotFound if not found.
	Get(ctx context.Context, id string) (*Entry, error)

	// GetByName retrieves an entry by its run name.
	// Returns ErrNotFound if not found.
	GetByName(ctx context.Context, name string) (*Entry, error)

	// Update modifies an existing entry.
	// Returns ErrNotFound if not found.
	Update(ctx context.Context, entry Entry) error

	// Remove deletes an entry by ID.
	// Returns ErrNotFound if not found.
	Remove(ctx context.Context, id string) error

	// List returns all entries matching the filter.
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
}
