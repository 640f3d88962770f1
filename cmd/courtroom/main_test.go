package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/courtroom/internal/config"
)

// isolate points the config file at a temporary path.
func isolate(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if contents != "" {
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	t.Setenv(config.EnvConfigPath, path)
	return path
}

func TestRun(t *testing.T) {
	isolate(t, "")

	for _, tc := range []struct {
		name    string
		args    []string
		wantErr bool
		want    string
	}{
		{name: "help command", args: []string{"help"}, want: "Available commands"},
		{name: "version command", args: []string{"version"}, want: "courtroom version " + version},
		{name: "no command shows help", args: nil, want: "Available commands"},
		{name: "help flag", args: []string{"--help"}, want: "Available commands"},
		{name: "short help flag", args: []string{"-h"}, want: "Available commands"},
		{name: "command help flag", args: []string{"play", "-h"}},
		{name: "unknown command", args: []string{"nonexistent"}, wantErr: true},
		{name: "bad flag", args: []string{"play", "--nope"}, wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tc.args, &stdout, &stderr)
			if (err != nil) != tc.wantErr {
				t.Fatalf("run(%v) error = %v, wantErr %v (stderr %q)", tc.args, err, tc.wantErr, stderr.String())
			}
			if !strings.Contains(stdout.String(), tc.want) {
				t.Fatalf("expected %q in output, got %q", tc.want, stdout.String())
			}
		})
	}
}

func TestRunRegistersAllCommands(t *testing.T) {
	isolate(t, "")
	var stdout bytes.Buffer
	if err := run([]string{"help"}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"config", "help", "init", "play", "transcripts", "version"} {
		if !strings.Contains(stdout.String(), "  "+name) {
			t.Errorf("expected command %q to be registered, got %q", name, stdout.String())
		}
	}
}

func TestRunUsesConfigFile(t *testing.T) {
	isolate(t, "log.level debug\nbogus 1\n[timers]\nround 45\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"config", "--all"}, &stdout, &stderr); err != nil {
		t.Fatalf("config --all: %v", err)
	}
	for _, want := range []string{"log.level: debug", "round: 45"} {
		if !strings.Contains(stdout.String(), want) {
			t.Fatalf("expected %q in output, got %q", want, stdout.String())
		}
	}
	if !strings.Contains(stderr.String(), "Warning:") {
		t.Fatalf("expected a load warning for the unknown key, got %q", stderr.String())
	}
}

func TestRunWithBrokenConfig(t *testing.T) {
	isolate(t, "[timers]\nround soon\n")
	var stdout bytes.Buffer
	if err := run([]string{"config", "--all"}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(stdout.String(), "round: 300") {
		t.Fatalf("expected defaults after a failed load, got %q", stdout.String())
	}
}
