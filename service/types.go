package service

import "github.com/emu-ps2/ee2/bits"

// RegisterSnapshot is a point-in-time copy of architectural state, safe to
// hand to a caller without holding EngineService's lock. It covers the
// three register banks the monitor's "dump gpr/cp0/fpr" command names.
type RegisterSnapshot struct {
	GPR    [32]bits.U128
	Lo, Hi bits.U128
	PC     uint32
	Cycles uint64

	CP0 [32]uint32
	FPR [32]uint32
}

// CacheStats reports code-cache occupancy for the monitor/API front ends,
// per spec.md §4.9 ("list live code-cache entries").
type CacheStats struct {
	Entries  int
	Capacity int
}

// ExecutionState mirrors the outcome of the last Step call.
type ExecutionState string

const (
	StateRunning ExecutionState = "running"
	StateHalted  ExecutionState = "halted"
	StateError   ExecutionState = "error"
)
