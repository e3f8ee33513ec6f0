package postgres

import (
	"testing"
	"testing/fstest"
)

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_add_notes.sql":             {Data: []byte("ALTER TABLE transactions ADD COLUMN notes TEXT;")},
		"0001_category_index.sql":        {Data: []byte("CREATE INDEX ON transactions (category);")},
		"001_short_version.sql":          {Data: []byte("SELECT 1;")},
		"0003_missing_extension":         {Data: []byte("SELECT 1;")},
		"README.md":                      {Data: []byte("notes")},
		"archive/0004_nested_ignore.sql": {Data: []byte("SELECT 1;")},
	}

	got, err := ReadMigrations(fsys)
	if err != nil {
		t.Fatalf("ReadMigrations() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d migrations, want 2: %+v", len(got), got)
	}
	if got[0].Version != 1 || got[0].Name != "category_index" || got[1].Version != 2 {
		t.Errorf("unexpected order: %+v", got)
	}
	if len(got[0].Checksum) != 64 || got[0].Checksum == got[1].Checksum {
		t.Errorf("checksums = %q, %q", got[0].Checksum, got[1].Checksum)
	}
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1;")},
		"0001_b.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := ReadMigrations(fsys); err == nil {
		t.Error("expected error for duplicate version")
	}
}
