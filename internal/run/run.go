// Package run orchestrates provisioning runs: it fans a manifest server
// group out across hosts, applies the group's roles in order on each host,
// and records the outcome in the report store.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/jmgilman/drover/internal/logging"
	"github.com/jmgilman/drover/internal/manifest"
	"github.com/jmgilman/drover/internal/names"
	"github.com/jmgilman/drover/internal/report"
	"github.com/jmgilman/drover/internal/role"
	"github.com/jmgilman/drover/internal/transport"
)

// ErrNoHosts is returned when a server group has no hosts to provision.
var ErrNoHosts = errors.New("server group has no hosts")

// reportStore is the internal interface for report persistence.
type reportStore interface {
	Add(ctx context.Context, entry report.Entry) error
	Update(ctx context.Context, entry report.Entry) error
	GetByName(ctx context.Context, name string) (*report.Entry, error)
}

// Dialer opens an execution channel to a target host.
type Dialer func(ctx context.Context, host string) (transport.Transport, error)

// HostOutput returns the terminal writer for a host's live command output.
// Returning nil keeps that host's output in the transcript file only.
type HostOutput func(host string) io.Writer

// Config configures a Runner.
type Config struct {
	LogsDir  string         // Directory for run transcripts
	Registry *role.Registry // Role registry (default role.DefaultRegistry)
	Logger   *slog.Logger   // Structured logger (default slog.Default())
}

// Options configures a single provisioning run.
type Options struct {
	// Parallel is the maximum number of hosts provisioned concurrently.
	// Values below 1 mean sequential.
	Parallel int

	// Output supplies a per-host terminal writer. Nil keeps all output in
	// the transcript files.
	Output HostOutput
}

// HostResult summarizes one host's outcome within a run.
type HostResult struct {
	Host     string
	ReportID string // Report entry ID
	Name     string // Report entry name
	Status   report.Status
	Err      error // Host-level failure (nil when converged)
}

// Summary aggregates a run's outcome across hosts.
type Summary struct {
	RunID     string
	Group     string
	Hosts     []HostResult // One per host, in manifest order
	Converged int
	Failed    int
}

// Runner provisions manifest server groups. Each host gets its own
// transport, provisioning context, transcript, and report entry; hosts
// never share mutable state, so one host failing cannot corrupt another.
type Runner struct {
	reports  reportStore
	dial     Dialer
	logPaths *logging.PathManager
	registry *role.Registry
	log      *slog.Logger
}

// New creates a runner that records reports through store and reaches hosts
// through dial.
func New(store reportStore, dial Dialer, cfg Config) *Runner {
	registry := cfg.Registry
	if registry == nil {
		registry = role.DefaultRegistry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		reports:  store,
		dial:     dial,
		logPaths: logging.NewPathManager(cfg.LogsDir),
		registry: registry,
		log:      logger,
	}
}

// Provision applies the group's roles, in manifest order, to every host in
// the group. Hosts are provisioned concurrently up to opts.Parallel; a
// failure on one host does not stop the others. The returned summary covers
// every host even when an error is returned; per-host failures are
// aggregated into the error.
func (r *Runner) Provision(ctx context.Context, group manifest.ServerGroup, opts Options) (*Summary, error) {
	if len(group.Hosts) == 0 {
		return nil, ErrNoHosts
	}

	// Refuse the whole run before touching any host if a role is unknown.
	for _, name := range group.Roles {
		if !r.registry.Has(name) {
			return nil, fmt.Errorf("role %q: %w", name, role.ErrNotRegistered)
		}
	}

	runID := uuid.NewString()
	if _, err := r.logPaths.EnsureRunDir(runID); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}

	recordNames, err := r.assignNames(ctx, group.Hosts)
	if err != nil {
		return nil, err
	}

	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}

	r.log.Info("starting run",
		"run", runID,
		"group", group.Name,
		"hosts", len(group.Hosts),
		"roles", group.Roles,
	)

	summary := &Summary{
		RunID: runID,
		Group: group.Name,
		Hosts: make([]HostResult, len(group.Hosts)),
	}

	var g errgroup.Group
	g.SetLimit(parallel)

	for i, host := range group.Hosts {
		g.Go(func() error {
			var out io.Writer
			if opts.Output != nil {
				out = opts.Output(host)
			}

			res := r.provisionHost(ctx, group, host, runID, recordNames[i], out)
			summary.Hosts[i] = res
			// Host failures are reported through the summary, not the
			// group, so sibling hosts keep running.
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines always return nil

	var merr *multierror.Error
	for i := range summary.Hosts {
		res := &summary.Hosts[i]
		if res.Err != nil {
			summary.Failed++
			merr = multierror.Append(merr, fmt.Errorf("host %s: %w", res.Host, res.Err))
		} else {
			summary.Converged++
		}
	}

	r.log.Info("run finished",
		"run", runID,
		"converged", summary.Converged,
		"failed", summary.Failed,
	)

	return summary, merr.ErrorOrNil()
}

// provisionHost runs the full lifecycle for one host: report entry, dial,
// role application, and final status. The entry is created before the
// connection attempt so unreachable hosts still leave a record.
func (r *Runner) provisionHost(ctx context.Context, group manifest.ServerGroup, host, runID, recordName string, out io.Writer) HostResult {
	entry := report.Entry{
		ID:         uuid.NewString(),
		RunID:      runID,
		Name:       recordName,
		Group:      group.Name,
		Host:       host,
		User:       group.User,
		StartedAt:  time.Now(),
		Status:     report.StatusRunning,
		Transcript: r.logPaths.HostLogPath(runID, host),
	}

	res := HostResult{Host: host, ReportID: entry.ID, Name: recordName}

	if err := r.reports.Add(ctx, entry); err != nil {
		res.Status = report.StatusFailed
		res.Err = fmt.Errorf("add report entry: %w", err)
		return res
	}

	err := r.converge(ctx, group, host, runID, &entry, out)

	entry.FinishedAt = time.Now()
	if err != nil {
		entry.Status = report.StatusFailed
		entry.Error = err.Error()
	} else {
		entry.Status = report.StatusConverged
	}

	// The final status write must land even when the run context was
	// cancelled mid-provision.
	if updateErr := r.reports.Update(context.WithoutCancel(ctx), entry); updateErr != nil {
		r.log.Error("update report entry", "host", host, "error", updateErr)
		if err == nil {
			err = fmt.Errorf("update report entry: %w", updateErr)
			entry.Status = report.StatusFailed
		}
	}

	res.Status = entry.Status
	res.Err = err
	return res
}

// converge connects to the host and applies each role in order, recording
// per-role results on the entry. The first failing role aborts the host;
// the remaining roles are marked skipped.
func (r *Runner) converge(ctx context.Context, group manifest.ServerGroup, host, runID string, entry *report.Entry, out io.Writer) error {
	transcript, err := r.transcript(runID, host, out)
	if err != nil {
		return err
	}
	defer transcript.Close() //nolint:errcheck // log file close failure is not actionable

	t, err := r.dial(ctx, host)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", host, err)
	}
	defer t.Close() //nolint:errcheck // connection teardown is best-effort

	c, err := role.NewContext(role.ContextConfig{
		Transport: t,
		User:      group.User,
		Sudo:      group.Sudo,
		Registry:  r.registry,
		Logger:    r.log.With("host", host, "group", group.Name),
		Output:    transcript,
	})
	if err != nil {
		return fmt.Errorf("create provisioning context: %w", err)
	}

	for i, roleName := range group.Roles {
		result, roleErr := r.applyRole(ctx, c, group, roleName)
		entry.Roles = append(entry.Roles, result)

		if roleErr != nil {
			for _, skipped := range group.Roles[i+1:] {
				entry.Roles = append(entry.Roles, report.RoleResult{
					Name:   skipped,
					Status: report.RoleSkipped,
				})
			}
			return roleErr
		}
	}

	return nil
}

// applyRole resolves a role, decodes its manifest options onto the
// instance, and provisions it, timing the whole application.
func (r *Runner) applyRole(ctx context.Context, c *role.Context, group manifest.ServerGroup, name string) (report.RoleResult, error) {
	result := report.RoleResult{Name: name}
	start := time.Now()

	instance, err := role.Resolve(c, name)
	if err == nil {
		if err = decodeOptions(instance, group.RoleOptions(name)); err == nil {
			err = role.Provision(ctx, c, instance)
		}
	}

	result.Duration = time.Since(start)
	if err != nil {
		result.Status = report.RoleFailed
		result.Error = err.Error()
		return result, err
	}

	result.Status = report.RoleConverged
	return result, nil
}

// transcript opens the host's transcript writer. With no terminal writer
// the transcript is the only destination.
func (r *Runner) transcript(runID, host string, out io.Writer) (*logging.TeeWriter, error) {
	path, err := r.logPaths.EnsureHostLog(runID, host)
	if err != nil {
		return nil, fmt.Errorf("create transcript: %w", err)
	}

	if out == nil {
		return logging.LogOnlyWriter(path)
	}
	return logging.NewTeeWriter(out, path)
}

// assignNames picks a unique report record name for each host before the
// run fans out, so concurrent hosts cannot race for the same name.
func (r *Runner) assignNames(ctx context.Context, hosts []string) ([]string, error) {
	chosen := make(map[string]bool, len(hosts))
	assigned := make([]string, len(hosts))

	for i := range hosts {
		name, err := names.GenerateUnique(func(candidate string) bool {
			if chosen[candidate] {
				return true
			}
			_, err := r.reports.GetByName(ctx, candidate)
			return err == nil
		}, 0)
		if err != nil {
			return nil, fmt.Errorf("generate record name: %w", err)
		}
		chosen[name] = true
		assigned[i] = name
	}

	return assigned, nil
}

// decodeOptions applies a manifest option map onto the resolved role
// instance. Unknown keys are an error so manifest typos surface instead of
// silently provisioning defaults.
func decodeOptions(r role.Role, options map[string]any) error {
	if len(options) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           r,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return fmt.Errorf("build option decoder: %w", err)
	}

	if err := decoder.Decode(options); err != nil {
		return fmt.Errorf("decode options for role %s: %w", r.Name(), err)
	}
	return nil
}
