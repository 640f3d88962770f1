package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joeycumines/courtroom/internal/storage"
)

// SetKeyInFile sets a global option in the config file at path.
func SetKeyInFile(path, key, value string) error {
	return SetOptionInFile(path, "", key, value)
}

// SetOptionInFile sets key in section ("" for global options) of the config
// file at path, creating the file and its directory if needed. Comments,
// blank lines and other options are kept as they are.
//
// An existing key is rewritten in place. A new key goes after the last
// option of its section; a global key with no global options yet goes above
// the first section header. A missing section is appended to the file.
func SetOptionInFile(path, section, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return storage.AtomicWriteFile(path, []byte(setOption(string(data), section, key, value)), 0644)
}

func setOption(text, section, key, value string) string {
	line := strings.TrimSpace(key + " " + value)

	var lines []string
	if text != "" {
		lines = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	}

	var (
		current     string
		seen        = section == ""
		header      = -1
		firstHeader = -1
		lastOption  = -1
	)
	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if name, ok := sectionHeader(trimmed); ok {
			if firstHeader < 0 {
				firstHeader = i
			}
			current = name
			if name == section {
				seen, header = true, i
			}
			continue
		}
		if current != section || trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if name, _, _ := strings.Cut(trimmed, " "); name == key {
			lines[i] = line
			return joinLines(lines)
		}
		lastOption = i
	}

	switch {
	case !seen:
		if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) != "" {
			lines = append(lines, "")
		}
		lines = append(lines, "["+section+"]", line)
		return joinLines(lines)
	case lastOption >= 0:
		return joinLines(slices.Insert(lines, lastOption+1, line))
	case section != "":
		return joinLines(slices.Insert(lines, header+1, line))
	case firstHeader >= 0:
		return joinLines(slices.Insert(lines, firstHeader, line))
	default:
		return joinLines(append(lines, line))
	}
}

func sectionHeader(trimmed string) (string, bool) {
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return "", false
	}
	return strings.TrimSpace(trimmed[1 : len(trimmed)-1]), true
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}
