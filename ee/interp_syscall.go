package ee

import "fmt"

// Syscall numbers recognized by spec.md §4.4's "Syscalls are dispatched
// by the v1 value" paragraph.
const (
	syscallSetCrt        = 0x02
	syscallInitMainThread = 0x3C
	syscallInitHeap       = 0x3D
	syscallFlushCache     = 0x64
	syscallGsPutIMR       = 0x71
)

// syscall dispatches on the V1 register, per spec.md §4.4. Only the five
// numbers spec.md names are implemented; everything else returns an
// explicit "not implemented" error the surrounding Step call propagates,
// per spec.md §7's Error Handling Design ("surfaced as a deliberate
// 'not yet implemented' stop").
func (c *Core) syscall() error {
	number := c.Regs.Get32(V1)
	switch number {
	case syscallSetCrt:
		// video mode / interlace / field parameters arrive in a0..a3;
		// this core has no GS to configure, so the call is a no-op ack.
		return nil
	case syscallInitMainThread:
		// a0=gp, a1=stack base, a2=stack size, a3=args; returns the
		// computed stack top in v0.
		stackBase := c.Regs.Get32(A1)
		stackSize := c.Regs.Get32(A2)
		c.Regs.Set32(V0, stackBase+stackSize)
		return nil
	case syscallInitHeap:
		// a0=heap base, a1=heap size (or -1 for "rest of memory");
		// returns the heap end in v0.
		heapBase := c.Regs.Get32(A0)
		heapSize := c.Regs.Get32(A1)
		c.Regs.Set32(V0, heapBase+heapSize)
		return nil
	case syscallFlushCache:
		// the code cache is always coherent with the bus in this
		// emulator (every write invalidates before returning), so there
		// is nothing additional to flush.
		return nil
	case syscallGsPutIMR:
		// GS interrupt mask register write; the GS is an external
		// collaborator (spec.md §1) this core does not model.
		return nil
	default:
		return fmt.Errorf("syscall %#x not implemented", number)
	}
}
