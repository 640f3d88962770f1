package storage

import (
	"fmt"
	"maps"
	"slices"
)

// BackendFactory opens a Backend for sessionID.
type BackendFactory func(sessionID string) (Backend, error)

// BackendRegistry holds the backends selectable with storage.backend.
var BackendRegistry = map[string]BackendFactory{
	"fs":     func(id string) (Backend, error) { return NewFileSystemBackend(id) },
	"memory": func(id string) (Backend, error) { return NewInMemoryBackend(id) },
}

func GetBackend(name, sessionID string) (Backend, error) {
	if open, ok := BackendRegistry[name]; ok {
		return open(sessionID)
	}
	return nil, fmt.Errorf("unknown storage backend: %s", name)
}

// BackendNames lists the registered backend names, sorted.
func BackendNames() []string {
	return slices.Sorted(maps.Keys(BackendRegistry))
}
