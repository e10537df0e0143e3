package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStorefrontMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_storefront.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no storefront migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE products",
		"CREATE TABLE cart_items",
		"cart_id uuid NOT NULL REFERENCES cart_records(id) ON DELETE CASCADE",
		"quantity integer NOT NULL CHECK (quantity > 0)",
		"CREATE TABLE outbox_events",
		"CREATE INDEX ix_outbox_events_unpublished ON outbox_events (created_at) WHERE published_at IS NULL",
		"DROP TABLE IF EXISTS outbox_events",
		"DROP TABLE IF EXISTS products",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
