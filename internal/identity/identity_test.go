package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadPrimary(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "identity.toml"), "uid = \"gw-1\"\ndomain = \"ops.example.com\"\n")

	id, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if id.UID != "gw-1" || id.Domain != "ops.example.com" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestLoadFallsBackWhenPrimaryMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "identity-fallback.toml"), "uid = \"gw-fallback\"\ndomain = \"fallback.example.com\"\n")

	id, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if id.UID != "gw-fallback" {
		t.Errorf("expected fallback identity, got %+v", id)
	}
}

func TestLoadFallsBackWhenPrimaryUnparseable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "identity.toml"), "not valid toml {{{")
	writeFile(t, filepath.Join(dir, "identity-fallback.toml"), "uid = \"gw-fallback\"\ndomain = \"fallback.example.com\"\n")

	id, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if id.UID != "gw-fallback" {
		t.Errorf("expected fallback identity, got %+v", id)
	}
}

func TestLoadFailsWhenNeitherParses(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(dir); err == nil {
		t.Error("expected error when no identity file exists")
	}
}

func TestReplaceWritesPrimaryOnly(t *testing.T) {
	dir := t.TempDir()
	want := Identity{UID: "gw-2", Domain: "ops2.example.com"}

	if err := Replace(dir, want); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "identity-fallback.toml")); err == nil {
		t.Error("Replace should not touch the fallback file")
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after Replace: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
