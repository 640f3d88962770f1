package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
)

var sessionCounter atomic.Int64

// NewTestSessionID returns a process-unique, path-safe session ID derived
// from the test name.
func NewTestSessionID(prefix, tname string) string {
	r := strings.NewReplacer("/", "-_-", " ", "_", "#", "_")
	return fmt.Sprintf("%s-%s-%d", prefix, r.Replace(tname), sessionCounter.Add(1))
}
