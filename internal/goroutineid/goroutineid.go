// Package goroutineid reads the current goroutine's ID from its stack
// header.
package goroutineid

import (
	"bytes"
	"runtime"
	"sync"
)

// the header "goroutine N [status]:" fits well within this
const headerSize = 64

var buffers = sync.Pool{
	New: func() any {
		b := make([]byte, headerSize)
		return &b
	},
}

// Get returns the ID of the calling goroutine, or 0 if it cannot be read.
func Get() int64 {
	buf := buffers.Get().(*[]byte)
	defer buffers.Put(buf)
	n := runtime.Stack(*buf, false)
	return parse((*buf)[:n])
}

func parse(stack []byte) int64 {
	rest, ok := bytes.CutPrefix(stack, []byte("goroutine "))
	if !ok {
		return 0
	}
	var id int64
	for _, c := range rest {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
