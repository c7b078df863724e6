// Package main builds libkaiku, the c-shared runtime that
// compiler-instrumented programs link against:
//
//	go build -buildmode=c-shared -o libkaiku.so ./cmd/libkaiku
//
// The instrumentation pass inserts calls to the kaiku_trace_* symbols
// declared in exports.go. The trace is written at process exit, or
// earlier through kaiku_trace_save.
package main

/*
#include <stdlib.h>

extern void kaikuSaveAtExit(void);

static void kaiku_install_atexit(void) {
	atexit(kaikuSaveAtExit);
}
*/
import "C"

// A c-shared library has no shutdown hook of its own, so the save-on-
// exit path rides the host program's atexit.
func init() {
	C.kaiku_install_atexit()
}

func main() {}
