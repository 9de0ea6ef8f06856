package service

import "testing"

func newTestService() *EngineService {
	return NewEngineService(1024*1024, 256)
}

// nopWord is "sll $zero, $zero, 0" — opcode/funct all zero, a true no-op
// since writes to the zero register are discarded.
const nopWord = 0x00000000

// breakWord is the SPECIAL/break encoding (funct 0x0d); the JIT translator
// never compiles it, so it always forces an interpreted, erroring step —
// used here to keep straight-line test programs short and deterministic.
const breakWord = 0x0000000d

// writeBoundedProgram lays down n NOPs followed by a break, so any Step
// call against it translates at most an n-instruction block instead of
// running into the JIT's straight-line length cap or unmapped memory.
func writeBoundedProgram(svc *EngineService, base uint32, nopCount int) {
	addr := base
	for i := 0; i < nopCount; i++ {
		svc.WriteWord(addr, nopWord)
		addr += 4
	}
	svc.WriteWord(addr, breakWord)
}

func TestFreshServiceStartsAtZero(t *testing.T) {
	svc := newTestService()
	snap := svc.Registers()

	if snap.PC != 0 {
		t.Errorf("expected PC=0, got %#x", snap.PC)
	}
	if snap.Cycles != 0 {
		t.Errorf("expected Cycles=0, got %d", snap.Cycles)
	}
	for i, v := range snap.GPR {
		if v.Lo != 0 || v.Hi != 0 {
			t.Errorf("expected GPR[%d] zeroed, got %#x:%#x", i, v.Hi, v.Lo)
		}
	}
}

func TestStepAdvancesCyclesAndPC(t *testing.T) {
	svc := newTestService()
	writeBoundedProgram(svc, 0, 4)

	if err := svc.Step(1); err != nil {
		t.Fatalf("step over a straight-line NOP block should not fault: %v", err)
	}

	snap := svc.Registers()
	if snap.Cycles != 4 {
		t.Errorf("expected the 4-NOP block to charge 4 cycles, got %d", snap.Cycles)
	}
	if snap.PC != 16 {
		t.Errorf("expected PC advanced by 4 NOPs (16 bytes), got %#x", snap.PC)
	}
}

func TestStepStopsAtBreak(t *testing.T) {
	svc := newTestService()
	writeBoundedProgram(svc, 0, 0)

	if err := svc.Step(1); err == nil {
		t.Fatal("expected break instruction to surface as an error")
	}
}

func TestSetPCRelocatesExecution(t *testing.T) {
	svc := newTestService()
	svc.SetPC(0x1000)

	snap := svc.Registers()
	if snap.PC != 0x1000 {
		t.Fatalf("expected PC=0x1000, got %#x", snap.PC)
	}
}

func TestWriteWordThenReadWordRoundTrips(t *testing.T) {
	svc := newTestService()
	svc.WriteWord(0x100, 0xdeadbeef)

	if got := svc.ReadWord(0x100); got != 0xdeadbeef {
		t.Errorf("expected 0xdeadbeef, got %#x", got)
	}
}

func TestCacheStatsReportsCapacity(t *testing.T) {
	svc := newTestService()
	stats := svc.CacheStats()

	if stats.Capacity == 0 {
		t.Error("expected non-zero cache capacity")
	}
	if stats.Entries != 0 {
		t.Errorf("expected no cache entries before stepping, got %d", stats.Entries)
	}
}

func TestInvalidateDoesNotPanicOnEmptyCache(t *testing.T) {
	svc := newTestService()
	svc.Invalidate(0, 0x1000)
}

func TestResetReturnsToInitialState(t *testing.T) {
	svc := newTestService()
	svc.SetPC(0x2000)
	_ = svc.Step(1)

	svc.Reset()

	snap := svc.Registers()
	if snap.PC != 0 || snap.Cycles != 0 {
		t.Errorf("expected reset to zero PC/Cycles, got pc=%#x cycles=%d", snap.PC, snap.Cycles)
	}
}

func TestRegisterSnapshotCoversCP0AndFPR(t *testing.T) {
	svc := newTestService()
	snap := svc.Registers()

	if len(snap.CP0) != 32 {
		t.Errorf("expected 32 CP0 registers, got %d", len(snap.CP0))
	}
	if len(snap.FPR) != 32 {
		t.Errorf("expected 32 FPU registers, got %d", len(snap.FPR))
	}
}
