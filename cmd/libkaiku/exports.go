package main

/*
#include <stdbool.h>
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/yairfalse/kaiku/pkg/trace"
	"github.com/yairfalse/kaiku/pkg/tracer"
)

// The exported names are the C symbol contract; the instrumentation
// pass emits calls against them verbatim, underscores and all.

func goString(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

func debugInfo(funcname, filename *C.char, line, col C.uint32_t) trace.DebugInfo {
	return trace.DebugInfo{
		Funcname: goString(funcname),
		Filename: goString(filename),
		Line:     uint32(line),
		Col:      uint32(col),
	}
}

// kaiku_trace_reset discards all recorded state and starts a fresh
// session.
//
//export kaiku_trace_reset
func kaiku_trace_reset() {
	tracer.Default().Reset()
}

//export kaiku_trace_instrument_alloc
func kaiku_trace_instrument_alloc(callID C.uint64_t, bufferName *C.char, addr unsafe.Pointer, size C.size_t, funcname *C.char, filename *C.char, line C.uint32_t, col C.uint32_t) {
	tracer.Default().InstrumentAlloc(uint64(callID), goString(bufferName), uintptr(addr), uint64(size),
		debugInfo(funcname, filename, line, col))
}

//export kaiku_trace_instrument_dealloc
func kaiku_trace_instrument_dealloc(callID C.uint64_t, addr unsafe.Pointer, funcname *C.char, filename *C.char, line C.uint32_t, col C.uint32_t) {
	tracer.Default().InstrumentDealloc(uint64(callID), uintptr(addr),
		debugInfo(funcname, filename, line, col))
}

//export kaiku_trace_instrument_access
func kaiku_trace_instrument_access(callID C.uint64_t, addr unsafe.Pointer, isWrite C.bool, funcname *C.char, filename *C.char, line C.uint32_t, col C.uint32_t) {
	tracer.Default().InstrumentAccess(uint64(callID), uintptr(addr), bool(isWrite),
		debugInfo(funcname, filename, line, col))
}

//export kaiku_trace_instrument_read
func kaiku_trace_instrument_read(callID C.uint64_t, addr unsafe.Pointer, funcname *C.char, filename *C.char, line C.uint32_t, col C.uint32_t) {
	tracer.Default().InstrumentRead(uint64(callID), uintptr(addr),
		debugInfo(funcname, filename, line, col))
}

//export kaiku_trace_instrument_write
func kaiku_trace_instrument_write(callID C.uint64_t, addr unsafe.Pointer, funcname *C.char, filename *C.char, line C.uint32_t, col C.uint32_t) {
	tracer.Default().InstrumentWrite(uint64(callID), uintptr(addr),
		debugInfo(funcname, filename, line, col))
}

//export kaiku_trace_instrument_scope_entry
func kaiku_trace_instrument_scope_entry(callID C.uint64_t, scopeID C.uint32_t, scopeType C.uint8_t, funcname *C.char, filename *C.char, line C.uint32_t, col C.uint32_t) {
	tracer.Default().InstrumentScopeEntry(uint64(callID), uint32(scopeID), trace.ScopeKind(scopeType),
		debugInfo(funcname, filename, line, col))
}

//export kaiku_trace_instrument_scope_exit
func kaiku_trace_instrument_scope_exit(callID C.uint64_t, scopeID C.uint32_t, funcname *C.char, filename *C.char, line C.uint32_t, col C.uint32_t) {
	tracer.Default().InstrumentScopeExit(uint64(callID), uint32(scopeID),
		debugInfo(funcname, filename, line, col))
}

// kaiku_trace_save writes the trace to path, or to the configured
// output when path is NULL or empty. Returns 0 on success.
//
//export kaiku_trace_save
func kaiku_trace_save(path *C.char) C.int {
	if err := tracer.Default().Save(goString(path)); err != nil {
		return 1
	}
	return 0
}

// kaikuSaveAtExit runs from the host program's atexit handler.
//
//export kaikuSaveAtExit
func kaikuSaveAtExit() {
	_ = tracer.Teardown()
}
