// Package session derives a stable identifier for the terminal a game is
// played in, so that persisted transcripts survive restarting the program in
// the same terminal.
//
// IDs have the form {namespace}--{payload} and are safe to use as a single
// path segment on every supported platform.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxSessionIDLength caps the whole ID, leaving room for file suffixes.
	MaxSessionIDLength = 80

	// NamespaceDelimiter separates the namespace from the payload.
	NamespaceDelimiter = "--"

	// ShortHashLength is the number of hex characters kept from hashed
	// payloads.
	ShortHashLength = 16

	// EnvSessionID overrides detection when set.
	EnvSessionID = "COURTROOM_SESSION_ID"
)

// Namespaces. These MUST stay distinct so IDs from different sources never
// collide.
const (
	NamespaceExplicit = "ex"
	NamespaceTmux     = "tmux"
	NamespaceScreen   = "screen"
	NamespaceSSH      = "ssh"
	NamespaceUUID     = "uuid"
)

// Source names which detector produced an ID.
type Source string

const (
	SourceFlag   Source = "explicit-flag"
	SourceEnv    Source = "explicit-env"
	SourceTmux   Source = "tmux"
	SourceScreen Source = "screen"
	SourceSSH    Source = "ssh-env"
	SourceUUID   Source = "uuid-fallback"
)

// detector state, replaced in tests
var (
	lookupEnv   = os.LookupEnv
	queryTmux   = getTmuxPane
	newUUID     = uuid.NewString
	tmuxTimeout = 500 * time.Millisecond
)

// GetSessionID resolves the session ID, in priority order: explicit
// override, the COURTROOM_SESSION_ID environment variable, the tmux pane,
// the GNU screen session, the SSH connection, and finally a random UUID.
//
// A UUID-derived ID is never stable across runs, so transcripts are only
// resumed when one of the other sources is available.
func GetSessionID(explicit string) (string, Source, error) {
	if explicit != "" {
		return formatExplicitID(explicit), SourceFlag, nil
	}
	if v, ok := lookupEnv(EnvSessionID); ok && v != "" {
		return formatExplicitID(v), SourceEnv, nil
	}

	if v, ok := lookupEnv("TMUX_PANE"); ok && v != "" {
		if raw, err := queryTmux(); err == nil && raw != "" {
			return formatTmuxID(raw), SourceTmux, nil
		}
	}
	if v, ok := lookupEnv("STY"); ok && v != "" {
		return formatHashedID(NamespaceScreen, "screen:"+v), SourceScreen, nil
	}
	if v, ok := lookupEnv("SSH_CONNECTION"); ok && v != "" {
		return formatHashedID(NamespaceSSH, "ssh:"+strings.Join(strings.Fields(v), ":")), SourceSSH, nil
	}

	id := newUUID()
	if id == "" {
		return "", "", fmt.Errorf("all session detection methods failed")
	}
	return formatSessionID(NamespaceUUID, id), SourceUUID, nil
}

// formatExplicitID keeps a caller-provided namespace if present, otherwise
// prefixes the explicit namespace.
func formatExplicitID(id string) string {
	if idx := strings.Index(id, NamespaceDelimiter); idx > 0 {
		return formatSessionID(sanitizePayload(id[:idx]), id[idx+len(NamespaceDelimiter):])
	}
	return formatSessionID(NamespaceExplicit, id)
}

func formatHashedID(namespace, stable string) string {
	return formatSessionID(namespace, hashString(stable)[:ShortHashLength])
}

// formatSessionID sanitizes payload and, when the result would exceed
// MaxSessionIDLength, truncates it with a hash suffix computed from the
// unsanitized payload.
func formatSessionID(namespace, payload string) string {
	sum := hashString(payload)
	payload = sanitizePayload(payload)

	maxPayload := MaxSessionIDLength - len(namespace) - len(NamespaceDelimiter)
	if len(payload) > maxPayload {
		if keep := maxPayload - 9; keep < 8 {
			payload = sum[:maxPayload]
		} else {
			payload = payload[:keep] + "_" + sum[:8]
		}
	}
	return namespace + NamespaceDelimiter + payload
}

var tmuxIDRegex = regexp.MustCompile(`^\$(\w+):@(\w+):%(\w+)$`)

// getTmuxPane asks tmux for "$session:@window:%pane".
func getTmuxPane() (string, error) {
	tmuxPath, err := exec.LookPath("tmux")
	if err != nil {
		return "", fmt.Errorf("tmux not found in PATH: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), tmuxTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, tmuxPath, "display-message", "-p", "#{session_id}:#{window_id}:#{pane_id}").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// formatTmuxID renders "$0:@1:%2" as tmux--s0.w1.p2.
func formatTmuxID(raw string) string {
	if m := tmuxIDRegex.FindStringSubmatch(raw); len(m) == 4 {
		return formatSessionID(NamespaceTmux, fmt.Sprintf("s%s.w%s.p%s", m[1], m[2], m[3]))
	}
	return formatSessionID(NamespaceTmux, strings.NewReplacer("$", "s", "@", "w", "%", "p", ":", ".").Replace(raw))
}

// sanitizePayload replaces anything outside [A-Za-z0-9._-] with '_'.
func sanitizePayload(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
