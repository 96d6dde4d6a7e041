// ns16550/regs.go

// Register map of the 16550 family. The eight single-byte registers are
// multiplexed by access direction and by the Divisor Latch Access Bit
// (LCR bit 7): with DLAB set, offsets 0 and 1 address the two divisor
// latch bytes instead of the data and interrupt-enable registers.
package ns16550

// Register offsets from the base of the block. See the 16550 datasheet
// "PROGRAMMING TABLE".
const (
	RHR = 0 // read:  Receive Holding Register
	THR = 0 // write: Transmit Holding Register
	DLL = 0 // write, DLAB=1: divisor latch low byte
	IER = 1 // write: Interrupt Enable Register
	DLM = 1 // write, DLAB=1: divisor latch high byte
	ISR = 2 // read:  Interrupt Status Register
	FCR = 2 // write: FIFO Control Register
	LCR = 3 // write: Line Control Register
	MCR = 4 // write: Modem Control Register
	LSR = 5 // read:  Line Status Register
	MSR = 6 // read:  Modem Status Register
	SPR = 7 // ScratchPad Register, general purpose
)

// Line Status Register bits.
const (
	LSRRxReady = 1 << 0 // byte waiting in RHR (or RX FIFO)
	LSRTxIdle  = 1 << 5 // THR empty, ready for the next byte
	LSRTxEmpty = 1 << 6 // THR and transmit shift register both empty
)

// Line Control Register bits.
const (
	LCRWordLen8 = 3 << 0 // 8 data bits, 1 stop bit, no parity, no break
	LCRDLAB     = 1 << 7 // Divisor Latch Access Bit
)

// Interrupt Enable Register bits.
const (
	IERRxAvail = 1 << 0 // receive-data-available signalling
)

// Divisor for 38.4 kbaud from a 1.8432 MHz reference clock. On QEMU's
// virt machines the divisor is ignored, but it is programmed anyway so
// the sequence is correct on real silicon. Not configurable.
const (
	divisorLow  = 0x03
	divisorHigh = 0x00
)

// RegisterBlock is the access boundary between the driver and one
// 16550 register block. Implementations must perform each call as a
// direct, uncached access: the hardware mutates register contents
// between reads that look textually identical.
//
// Two implementations ship with the package: an MMIO block for TinyGo
// targets and a Sim block for host builds.
type RegisterBlock interface {
	Read8(off uint8) uint8
	Write8(off uint8, v uint8)
}
