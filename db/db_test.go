package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitDBCreatesFile(t *testing.T) {
	Path = filepath.Join(t.TempDir(), "nested", "tasksctl.db")
	if err := InitDB(); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	defer func() {
		if err := CloseDB(); err != nil {
			t.Errorf("CloseDB failed: %v", err)
		}
	}()

	if _, err := os.Stat(Path); err != nil {
		t.Fatalf("expected database file at %s: %v", Path, err)
	}
	if GetDB() != Db || Db == nil {
		t.Fatal("GetDB should return the initialized global connection")
	}
}

func TestCloseDB_Nil(t *testing.T) {
	old := Db
	Db = nil
	defer func() { Db = old }()

	if err := CloseDB(); err != nil {
		t.Errorf("CloseDB() with nil Db should not error: %v", err)
	}
}

func TestMigrate_NilConnection(t *testing.T) {
	if err := Migrate(nil); err == nil {
		t.Error("Migrate(nil) should fail")
	}
}

func TestConfigurePath_TasksctlHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKSCTL_HOME", dir)

	if err := ConfigurePath(); err != nil {
		t.Fatalf("ConfigurePath() error = %v", err)
	}
	if !strings.HasPrefix(Path, dir) {
		t.Errorf("Path = %v, should be under %v", Path, dir)
	}
}

func TestConfigurePath_XdgDataHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKSCTL_HOME", "")
	t.Setenv("XDG_DATA_HOME", dir)

	if err := ConfigurePath(); err != nil {
		t.Fatalf("ConfigurePath() error = %v", err)
	}
	if Path != filepath.Join(dir, "tasksctl", "tasksctl.db") {
		t.Errorf("unexpected Path %v", Path)
	}
}

func TestConfigurePath_HomeFallback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKSCTL_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", dir)

	if err := ConfigurePath(); err != nil {
		t.Fatalf("ConfigurePath() error = %v", err)
	}
	if Path != filepath.Join(dir, ".tasksctl", "tasksctl.db") {
		t.Errorf("unexpected Path %v", Path)
	}
}
