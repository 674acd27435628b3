package migrate

import (
	"testing"
	"testing/fstest"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	all, err := LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations failed: %v", err)
	}
	if len(all) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(all))
	}
	for i, m := range all {
		if m.Version != i+1 {
			t.Errorf("migration %d: expected version %d, got %d", i, i+1, m.Version)
		}
		if m.UpSQL == "" || m.DownSQL == "" {
			t.Errorf("migration %d_%s: missing up or down SQL", m.Version, m.Name)
		}
	}
}

func TestLoadFrom_SortsAndPairs(t *testing.T) {
	fsys := fstest.MapFS{
		"010_later.up.sql":    {Data: []byte("CREATE TABLE b (id INTEGER)")},
		"002_first.up.sql":    {Data: []byte("CREATE TABLE a (id INTEGER)")},
		"002_first.down.sql":  {Data: []byte("DROP TABLE a")},
		"README.md":           {Data: []byte("ignored")},
		"nested/003_x.up.sql": {Data: []byte("ignored")},
	}

	got, err := loadFrom(fsys)
	if err != nil {
		t.Fatalf("loadFrom failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(got))
	}
	if got[0].Version != 2 || got[0].DownSQL != "DROP TABLE a" {
		t.Errorf("unexpected first migration: %+v", got[0])
	}
	if got[1].Version != 10 || got[1].DownSQL != "" {
		t.Errorf("unexpected second migration: %+v", got[1])
	}
}

func TestSplitSQL(t *testing.T) {
	parts := SplitSQL("CREATE TABLE a (x INTEGER); CREATE INDEX i ON a(x);")
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
}
