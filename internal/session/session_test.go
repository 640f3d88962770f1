package session

import (
	"errors"
	"strings"
	"testing"
)

func stubEnv(t *testing.T, env map[string]string) {
	t.Helper()
	oldEnv, oldTmux, oldUUID := lookupEnv, queryTmux, newUUID
	lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	queryTmux = func() (string, error) { return "", errors.New("no tmux") }
	newUUID = func() string { return "0b5f0b8e-1c2d-4e5f-8a9b-0c1d2e3f4a5b" }
	t.Cleanup(func() { lookupEnv, queryTmux, newUUID = oldEnv, oldTmux, oldUUID })
}

func TestGetSessionID_Priority(t *testing.T) {
	tests := []struct {
		name       string
		explicit   string
		env        map[string]string
		tmux       string
		wantPrefix string
		wantSource Source
	}{
		{name: "flag wins", explicit: "game1", env: map[string]string{EnvSessionID: "other"}, wantPrefix: "ex--game1", wantSource: SourceFlag},
		{name: "env", env: map[string]string{EnvSessionID: "night", "STY": "1.pts"}, wantPrefix: "ex--night", wantSource: SourceEnv},
		{name: "tmux", env: map[string]string{"TMUX_PANE": "%3", "STY": "1.pts"}, tmux: "$1:@2:%3", wantPrefix: "tmux--s1.w2.p3", wantSource: SourceTmux},
		{name: "tmux failure falls through", env: map[string]string{"TMUX_PANE": "%3", "STY": "1.pts"}, wantPrefix: "screen--", wantSource: SourceScreen},
		{name: "ssh", env: map[string]string{"SSH_CONNECTION": "10.0.0.1 5000 10.0.0.2 22"}, wantPrefix: "ssh--", wantSource: SourceSSH},
		{name: "uuid", env: map[string]string{}, wantPrefix: "uuid--0b5f0b8e", wantSource: SourceUUID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubEnv(t, tt.env)
			if tt.tmux != "" {
				raw := tt.tmux
				queryTmux = func() (string, error) { return raw, nil }
			}
			id, source, err := GetSessionID(tt.explicit)
			if err != nil {
				t.Fatalf("GetSessionID: %v", err)
			}
			if !strings.HasPrefix(id, tt.wantPrefix) {
				t.Errorf("id = %q, want prefix %q", id, tt.wantPrefix)
			}
			if source != tt.wantSource {
				t.Errorf("source = %q, want %q", source, tt.wantSource)
			}
		})
	}
}

func TestGetSessionID_Stable(t *testing.T) {
	stubEnv(t, map[string]string{"SSH_CONNECTION": "10.0.0.1 5000 10.0.0.2 22"})
	a, _, _ := GetSessionID("")
	b, _, _ := GetSessionID("")
	if a != b {
		t.Fatalf("ids differ: %q vs %q", a, b)
	}
	if len(a) != len("ssh--")+ShortHashLength {
		t.Errorf("unexpected id length: %q", a)
	}
}

func TestFormatExplicitID(t *testing.T) {
	tests := map[string]string{
		"simple":        "ex--simple",
		"has space/sep": "ex--has_space_sep",
		"tmux--custom":  "tmux--custom",
		"we!rd--x":      "we_rd--x",
		"--leading":     "ex----leading",
	}
	for in, want := range tests {
		if got := formatExplicitID(in); got != want {
			t.Errorf("formatExplicitID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatSessionID_Truncates(t *testing.T) {
	long := strings.Repeat("a", 200)
	id := formatSessionID(NamespaceExplicit, long)
	if len(id) != MaxSessionIDLength {
		t.Fatalf("len = %d, want %d", len(id), MaxSessionIDLength)
	}
	other := formatSessionID(NamespaceExplicit, strings.Repeat("a", 199)+"b")
	if id == other {
		t.Error("distinct long payloads collided")
	}
}

func TestFormatTmuxID_NonStandard(t *testing.T) {
	if got := formatTmuxID("name:@1:%2/x"); got != "tmux--name.w1.p2_x" {
		t.Errorf("got %q", got)
	}
}
