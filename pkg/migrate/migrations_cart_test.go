package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestCartMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_carts.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS carts",
		"CONSTRAINT carts_customer_id_key UNIQUE (customer_id)",
		"CREATE TABLE IF NOT EXISTS cart_lines",
		"CONSTRAINT cart_lines_quantity_range CHECK (quantity >= 1 AND quantity <= 9999)",
		"CONSTRAINT cart_lines_cart_product_key UNIQUE (cart_id, product_id)",
		"FOREIGN KEY (cart_id) REFERENCES carts(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS cart_lines",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrderMigrationContainsSnapshots(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TYPE order_status AS ENUM ('completed')",
		"CREATE TABLE IF NOT EXISTS orders",
		"seller_id BIGINT NOT NULL",
		"total NUMERIC(12,2) NOT NULL",
		"CREATE TABLE IF NOT EXISTS order_lines",
		"product_name TEXT NOT NULL",
		"unit_price_at_purchase NUMERIC(12,2) NOT NULL",
		"DROP TABLE IF EXISTS order_lines",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestEmbeddedSchemaMatchesDir(t *testing.T) {
	fsys, err := migrate.Source("")
	if err != nil {
		t.Fatalf("embedded source: %v", err)
	}
	embedded, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob dir: %v", err)
	}
	if len(embedded) != len(onDisk) || len(embedded) < 4 {
		t.Fatalf("embedded %d files, dir has %d", len(embedded), len(onDisk))
	}
	if err := migrate.Validate(fsys); err != nil {
		t.Fatalf("embedded schema should validate: %v", err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"20260301090000_create_products.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")},
		"20260301090000_create_carts.sql":    {Data: []byte("-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n")},
		"20260301090100_create_products.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")},
		"cart_notes.sql":                     {Data: []byte("-- +goose Up\n")},
	}
	err := migrate.Validate(fsys)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{
		"invalid migration filename \"cart_notes.sql\"",
		"version 20260301090000 used by",
		"name \"create_products\" used by",
		"Down section precedes Up",
		"StatementBegin never closed",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Cart Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_cart_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add cart notes"); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
}

func TestCreateSQLMigrationSortsAfterNewest(t *testing.T) {
	dir := t.TempDir()
	future := filepath.Join(dir, "29991231235959_create_pets.sql")
	if err := os.WriteFile(future, []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("seed migration: %v", err)
	}
	path, err := migrate.CreateSQLMigration(dir, "add_grooming")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "29991231235960_add_grooming.sql" {
		t.Fatalf("expected version after newest, got %s", filepath.Base(path))
	}
}
