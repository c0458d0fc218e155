package migrations

import (
	"testing"
)

func TestLoad(t *testing.T) {
	all, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(all) == 0 {
		t.Fatal("expected embedded migrations")
	}

	for i, m := range all {
		if m.Version != i+1 {
			t.Errorf("migration %d has version %d, want contiguous numbering", i, m.Version)
		}
		if m.Up == "" || m.Down == "" {
			t.Errorf("migration %06d_%s is missing an up or down body", m.Version, m.Name)
		}
	}

	if all[0].Name != "users" {
		t.Errorf("first migration = %q, want users", all[0].Name)
	}
}
