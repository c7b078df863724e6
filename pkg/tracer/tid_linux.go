//go:build linux

package tracer

import "golang.org/x/sys/unix"

// currentThreadID returns the kernel task id of the calling thread.
// Instrumented programs call through cgo, which pins each call to an
// OS thread, so the id is stable for the duration of a call.
func currentThreadID() int64 {
	return int64(unix.Gettid())
}
