package migrate

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	slugRe     = regexp.MustCompile(`[^a-z0-9_]+`)
)

// migrationFile is a parsed <version>_<name>.sql entry.
type migrationFile struct {
	version int64
	name    string
	file    string
}

// ValidateDir checks the migrations in dir, or the embedded schema when dir
// is empty.
func ValidateDir(dir string) error {
	fsys, err := Source(dir)
	if err != nil {
		return err
	}
	return Validate(fsys)
}

// Validate reports every problem found rather than the first: bad file names,
// reused versions or names, a missing or misordered Up/Down pair, and
// unbalanced StatementBegin/StatementEnd markers.
func Validate(fsys fs.FS) error {
	files, invalid, err := listFiles(fsys)
	if err != nil {
		return err
	}
	if len(files) == 0 && len(invalid) == 0 {
		return fmt.Errorf("no migrations found")
	}

	var problems error
	for _, name := range invalid {
		problems = multierr.Append(problems,
			fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
	}
	versions := map[int64]string{}
	names := map[string]string{}
	for _, f := range files {
		if prev, ok := versions[f.version]; ok {
			problems = multierr.Append(problems, fmt.Errorf("version %d used by %q and %q", f.version, prev, f.file))
		}
		versions[f.version] = f.file
		if prev, ok := names[f.name]; ok {
			problems = multierr.Append(problems, fmt.Errorf("name %q used by %q and %q", f.name, prev, f.file))
		}
		names[f.name] = f.file

		problems = multierr.Append(problems, checkAnnotations(fsys, f.file))
	}
	return problems
}

// listFiles parses the .sql entries of fsys sorted by version; names that do
// not parse are returned separately.
func listFiles(fsys fs.FS) ([]migrationFile, []string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("read migrations: %w", err)
	}
	var (
		files   []migrationFile
		invalid []string
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m := fileNameRe.FindStringSubmatch(e.Name())
		if m == nil {
			invalid = append(invalid, e.Name())
			continue
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		files = append(files, migrationFile{version: version, name: m[2], file: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, invalid, nil
}

func checkAnnotations(fsys fs.FS, file string) error {
	f, err := fsys.Open(file)
	if err != nil {
		return fmt.Errorf("open %q: %w", file, err)
	}
	defer f.Close()

	var (
		upAt, downAt int
		open         bool
		problems     error
	)
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		switch strings.TrimSpace(scanner.Text()) {
		case "-- +goose Up":
			upAt = line
		case "-- +goose Down":
			downAt = line
		case "-- +goose StatementBegin":
			if open {
				problems = multierr.Append(problems, fmt.Errorf("%s:%d: StatementBegin inside an open statement", file, line))
			}
			open = true
		case "-- +goose StatementEnd":
			if !open {
				problems = multierr.Append(problems, fmt.Errorf("%s:%d: StatementEnd without StatementBegin", file, line))
			}
			open = false
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %q: %w", file, err)
	}

	switch {
	case upAt == 0:
		problems = multierr.Append(problems, fmt.Errorf("%s: missing \"-- +goose Up\"", file))
	case downAt == 0:
		problems = multierr.Append(problems, fmt.Errorf("%s: missing \"-- +goose Down\"", file))
	case downAt < upAt:
		problems = multierr.Append(problems, fmt.Errorf("%s: Down section precedes Up", file))
	}
	if open {
		problems = multierr.Append(problems, fmt.Errorf("%s: StatementBegin never closed", file))
	}
	return problems
}

// CreateSQLMigration writes an empty goose migration into dir and returns its
// path. The version is the current UTC time, bumped past the newest existing
// migration so files never sort behind one already applied.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	existing, _, err := listFiles(os.DirFS(dir))
	if err != nil {
		return "", err
	}
	version, err := strconv.ParseInt(time.Now().UTC().Format(versionLayout), 10, 64)
	if err != nil {
		return "", err
	}
	for _, f := range existing {
		if f.name == slug {
			return "", fmt.Errorf("migration %q already exists as %s", slug, f.file)
		}
		if f.version >= version {
			version = f.version + 1
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("%d_%s.sql", version, slug))
	body := fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s
-- +goose StatementEnd
`, slug)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}
