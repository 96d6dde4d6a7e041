// ns16550/mmio.go

//go:build tinygo

package ns16550

import (
	"runtime/volatile"
	"unsafe"
)

// mmioBlock overlays the eight-byte register span at a fixed physical
// address. volatile.Register8 keeps every access a real load/store: the
// compiler may not reorder, cache or elide them.
type mmioBlock struct {
	regs *[8]volatile.Register8
}

// NewMMIO returns a RegisterBlock over the hardware registers at base.
// The address must be the platform's UART base (UART0Base on QEMU's
// virt machines) and must not be shared with another driver instance.
func NewMMIO(base uintptr) RegisterBlock {
	return &mmioBlock{regs: (*[8]volatile.Register8)(unsafe.Pointer(base))}
}

func (m *mmioBlock) Read8(off uint8) uint8 {
	return m.regs[off].Get()
}

func (m *mmioBlock) Write8(off uint8, v uint8) {
	m.regs[off].Set(v)
}

// UART0Base is the 16550 block on QEMU's RISC-V/ARM virt machines.
const UART0Base uintptr = 0x1000_0000

// UART0 is the console UART instance. Public instance mirrors the
// hardware: exactly one block exists at UART0Base, so exactly one
// driver value is exported for it.
var (
	UART0  = &_UART0
	_UART0 = UART{regs: NewMMIO(UART0Base)}
)
