package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
)

// The storefront schema ships inside the binaries so dev autorun and the
// migrate command do not depend on the working directory.
//
//go:embed migrations/*.sql
var embedded embed.FS

// Command is a goose operation that needs a database connection.
type Command string

const (
	CommandUp      Command = "up"
	CommandDown    Command = "down"
	CommandStatus  Command = "status"
	CommandVersion Command = "version"
)

// Source returns the migration files: the embedded schema when dir is empty,
// otherwise the .sql files in dir.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations dir %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// Step is one migration goose applied, rolled back or reported.
type Step struct {
	Version   int64
	Path      string
	Direction string
	State     string
	Duration  time.Duration
	AppliedAt time.Time
}

// Run executes cmd against db. target is only read by CommandVersion, which
// moves the schema up or down to that version.
func Run(ctx context.Context, db *sql.DB, dir string, cmd Command, target int64) ([]Step, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	fsys, err := Source(dir)
	if err != nil {
		return nil, err
	}
	if err := Validate(fsys); err != nil {
		return nil, err
	}
	var opts []goose.ProviderOption
	if cmd != CommandStatus {
		// the api and the publisher may both autorun at startup; a session
		// advisory lock lets only one of them apply a migration
		locker, err := lock.NewPostgresSessionLocker()
		if err != nil {
			return nil, fmt.Errorf("goose session locker: %w", err)
		}
		opts = append(opts, goose.WithSessionLocker(locker))
	}
	// Provider.Close would close db, which belongs to the caller.
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys, opts...)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}

	switch cmd {
	case CommandUp:
		results, err := provider.Up(ctx)
		return resultSteps(results), wrapGoose(cmd, err)
	case CommandDown:
		result, err := provider.Down(ctx)
		if result == nil {
			return nil, wrapGoose(cmd, err)
		}
		return resultSteps([]*goose.MigrationResult{result}), wrapGoose(cmd, err)
	case CommandStatus:
		statuses, err := provider.Status(ctx)
		if err != nil {
			return nil, wrapGoose(cmd, err)
		}
		steps := make([]Step, 0, len(statuses))
		for _, st := range statuses {
			steps = append(steps, Step{
				Version:   st.Source.Version,
				Path:      st.Source.Path,
				State:     string(st.State),
				AppliedAt: st.AppliedAt,
			})
		}
		return steps, nil
	case CommandVersion:
		return migrateTo(ctx, provider, target)
	default:
		return nil, fmt.Errorf("unknown migrate command %q", cmd)
	}
}

func migrateTo(ctx context.Context, provider *goose.Provider, target int64) ([]Step, error) {
	if target <= 0 {
		return nil, fmt.Errorf("target version must be positive")
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err := provider.UpTo(ctx, target)
		return resultSteps(results), wrapGoose("up-to", err)
	default:
		results, err := provider.DownTo(ctx, target)
		return resultSteps(results), wrapGoose("down-to", err)
	}
}

func resultSteps(results []*goose.MigrationResult) []Step {
	steps := make([]Step, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		steps = append(steps, Step{
			Version:   r.Source.Version,
			Path:      r.Source.Path,
			Direction: r.Direction,
			Duration:  r.Duration,
		})
	}
	return steps
}

func wrapGoose(cmd Command, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", cmd, err)
}
