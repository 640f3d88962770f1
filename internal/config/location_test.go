package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestGetConfigPath(t *testing.T) {
	home := t.TempDir()
	homeVar := "HOME"
	if runtime.GOOS == "windows" {
		homeVar = "USERPROFILE"
	}
	t.Setenv(homeVar, home)

	for _, tc := range []struct {
		name, env, want string
	}{
		{"override", "/tmp/custom-config", "/tmp/custom-config"},
		{"empty override", "", filepath.Join(home, ".courtroom", "config")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvConfigPath, tc.env)
			got, err := GetConfigPath()
			if err != nil {
				t.Fatalf("GetConfigPath: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestEnsureConfigDir(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config")
	t.Setenv(EnvConfigPath, configPath)

	if err := EnsureConfigDir(); err != nil {
		t.Fatalf("EnsureConfigDir: %v", err)
	}
	if info, err := os.Stat(filepath.Dir(configPath)); err != nil || !info.IsDir() {
		t.Fatalf("expected a config directory, got %v", err)
	}
	// a second call is a no-op
	if err := EnsureConfigDir(); err != nil {
		t.Fatalf("EnsureConfigDir again: %v", err)
	}
}

func TestEnsureConfigDirFailsWhenParentIsFile(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(parent, []byte("ignore"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, filepath.Join(parent, "config"))

	if err := EnsureConfigDir(); err == nil {
		t.Fatal("expected an error when the parent is a file")
	}
}
