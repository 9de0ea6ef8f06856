// Package service wraps a single ee.Core behind a mutex so the monitor TUI
// and the HTTP API can share one running core safely, the same role
// service.DebuggerService played for the teacher's vm.VM.
package service

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/emu-ps2/ee2/bus"
	"github.com/emu-ps2/ee2/ee"
)

var engineLog *log.Logger

func init() {
	if os.Getenv("EE2_DEBUG") != "" {
		logPath := filepath.Join(os.TempDir(), "ee2-service-debug.log")
		f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) // #nosec G304 -- fixed filename in temp dir
		if err != nil {
			engineLog = log.New(os.Stderr, "SERVICE: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		} else {
			engineLog = log.New(f, "SERVICE: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		}
	} else {
		engineLog = log.New(io.Discard, "", 0)
	}
}

// EngineService provides a thread-safe interface to a running Emotion
// Engine core. It is the shared resource the monitor TUI and the HTTP API
// both drive, exactly as DebuggerService shared one vm.VM between the
// teacher's TUI and API.
type EngineService struct {
	mu            sync.RWMutex
	core          *ee.Core
	bus           *bus.FlatMemory
	physMemSize   uint32
	cacheCapacity int
}

// NewEngineService builds a fresh core plus its backing flat-memory bus,
// wired so bus writes invalidate overlapping code-cache translations
// (spec.md §6's bus contract). Virtual addresses [0, physMemSize) are
// mapped one-to-one onto main memory in every mode, so a fresh session can
// step from PC 0.
func NewEngineService(physMemSize uint32, cacheCapacity int) *EngineService {
	core := ee.NewCore(physMemSize, cacheCapacity)
	core.Mmu.Mmap(0, physMemSize, 0)
	mem := bus.NewFlatMemory(physMemSize, core.Invalidator())
	return &EngineService{
		core:          core,
		bus:           mem,
		physMemSize:   physMemSize,
		cacheCapacity: cacheCapacity,
	}
}

// Step advances the core until at least cycles cycles have been charged
// (spec.md §5's step(N, bus)); a compiled block always runs to its end, so
// more cycles than requested may be charged.
func (s *EngineService) Step(cycles uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	engineLog.Printf("Step: cycles=%d pc=%#010x", cycles, s.core.PC)
	if err := s.core.Step(cycles, s.bus); err != nil {
		engineLog.Printf("Step: error %v", err)
		return fmt.Errorf("step failed: %w", err)
	}
	return nil
}

// Registers returns a snapshot of architectural state (thread-safe).
func (s *EngineService) Registers() RegisterSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap RegisterSnapshot
	for r := ee.Register(0); r < 32; r++ {
		snap.GPR[r] = s.core.Regs.Get128(r)
	}
	snap.Lo = s.core.Regs.Get128(ee.Lo)
	snap.Hi = s.core.Regs.Get128(ee.Hi)
	snap.PC = s.core.PC
	snap.Cycles = s.core.Cycles
	for r := ee.ControlRegister(0); r < 32; r++ {
		snap.CP0[r] = s.core.CP0.Get(r)
	}
	for r := ee.FPRegister(0); r < 32; r++ {
		snap.FPR[r] = s.core.FPU.GetBits(r)
	}
	return snap
}

// CacheStats reports code-cache occupancy, per spec.md §4.9.
func (s *EngineService) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return CacheStats{
		Entries:  s.core.CacheEntryCount(),
		Capacity: s.core.CacheCapacity(),
	}
}

// Invalidate force-invalidates a physical range, exercising the SMC path
// from the outside without requiring a guest write to trigger it — the
// "invalidate" endpoint spec.md §6 names.
func (s *EngineService) Invalidate(start, end uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	engineLog.Printf("Invalidate: [%#010x, %#010x)", start, end)
	s.core.InvalidateRange(start, end)
}

// ReadWord reads one 32-bit word from main memory.
func (s *EngineService) ReadWord(addr uint32) uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bus.ReadU32(bus.Memory(addr))
}

// WriteWord writes one 32-bit word into main memory, going through the bus
// so SMC invalidation fires normally — used to load a guest program image.
func (s *EngineService) WriteWord(addr, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bus.WriteU32(bus.Memory(addr), value)
}

// SetPC sets the program counter directly (loader entry-point wiring).
func (s *EngineService) SetPC(pc uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.core.PC = pc
}

// Reset discards the current core and bus and builds a fresh pair with the
// same sizing, returning execution to its initial state.
func (s *EngineService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.core = ee.NewCore(s.physMemSize, s.cacheCapacity)
	s.core.Mmu.Mmap(0, s.physMemSize, 0)
	s.bus = bus.NewFlatMemory(s.physMemSize, s.core.Invalidator())
}
