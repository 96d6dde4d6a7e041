// ns16550/ns16550.go

// Package ns16550 provides a polling-mode console driver for a
// 16550-family UART behind a block of memory-mapped registers. Transmit
// and receive spin on the Line Status Register ready bits; there is no
// interrupt service and no software buffering. The package also carries
// a small line editor (ReadLine) for console input.
//
// Configure must run once before any other operation; until then the
// device sits in its power-up default mode and data-register accesses
// have undefined meaning. The baseline operations block indefinitely if
// the hardware never reports ready. Context-aware variants with
// cancellation live alongside them (see context.go).
package ns16550

// UART owns exclusive access to one 16550 register block. It holds no
// state of its own beyond the handle: all observable state lives in the
// hardware registers.
//
// The driver performs no internal locking. If multiple goroutines share
// one UART, the caller must serialise every operation on it.
type UART struct {
	regs RegisterBlock
}

// New returns a driver owning regs. The caller must not hand the same
// block to a second driver.
func New(regs RegisterBlock) *UART {
	return &UART{regs: regs}
}

// Configure brings the device from power-up defaults into polling-mode
// operation: interrupts off, divisor latched, line format 8N1. It
// cannot fail observably (no status is checked), so it returns nothing.
func (u *UART) Configure() {
	// Quiesce device-generated interrupt signalling while we program
	// the latches.
	u.regs.Write8(IER, 0x00)

	// Open the divisor latch. DLAB repurposes offsets 0 and 1, so it
	// must be cleared again before any data-mode access.
	lcr := u.regs.Read8(LCR)
	u.regs.Write8(LCR, lcr|LCRDLAB)
	u.regs.Write8(DLL, divisorLow)
	u.regs.Write8(DLM, divisorHigh)

	// Full LCR write: 8 data bits, 1 stop bit, no parity, no break.
	// Writing without LCRDLAB closes the divisor latch.
	u.regs.Write8(LCR, LCRWordLen8)

	// Assert receive-data-available signalling. Nothing in this driver
	// services it; the bit is kept for parity with the hardware's
	// interrupt path should a consumer ever appear.
	ier := u.regs.Read8(IER)
	u.regs.Write8(IER, ier|IERRxAvail)
}

// pollLSR spins until every bit in mask reads set in the Line Status
// Register. This is the only busy-wait in the package; it is unbounded
// on purpose (there is no timeout primitive at this layer).
func (u *UART) pollLSR(mask uint8) {
	for u.regs.Read8(LSR)&mask == 0 {
		u.dbgPollSpin()
	}
}

// TxIdle reports whether the transmit holding register can accept a
// byte right now.
func (u *UART) TxIdle() bool {
	return u.regs.Read8(LSR)&LSRTxIdle != 0
}

// DataReady reports whether a received byte is waiting in RHR.
func (u *UART) DataReady() bool {
	return u.regs.Read8(LSR)&LSRRxReady != 0
}

// WriteByte blocks until the transmitter is idle, then emits c. The
// error is always nil; the io-style signature is kept so the UART
// satisfies io.Writer via Write.
func (u *UART) WriteByte(c byte) error {
	u.pollLSR(LSRTxIdle)
	u.regs.Write8(THR, c)
	u.dbgTxByte()
	return nil
}

// Write implements io.Writer, emitting every byte of p in order.
func (u *UART) Write(p []byte) (int, error) {
	for _, c := range p {
		_ = u.WriteByte(c)
	}
	return len(p), nil
}

// WriteString emits every byte of s in order.
func (u *UART) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		_ = u.WriteByte(s[i])
	}
}

// ReadByte blocks until a byte is waiting, then returns it. The error
// is always nil in the baseline polling contract.
func (u *UART) ReadByte() (byte, error) {
	u.pollLSR(LSRRxReady)
	b := u.regs.Read8(RHR)
	u.dbgRxByte()
	return b, nil
}

// TryReadByte returns immediately with (byte, true) if a byte is
// waiting and (0, false) otherwise. It never blocks.
func (u *UART) TryReadByte() (byte, bool) {
	if !u.DataReady() {
		return 0, false
	}
	return u.regs.Read8(RHR), true
}

// Flush blocks until the transmitter is completely empty: THR and the
// shift register both drained, every queued bit on the wire.
func (u *UART) Flush() {
	u.pollLSR(LSRTxEmpty)
}

// Line editing control bytes.
const (
	charCR  = '\r'
	charBS  = '\b'
	charDEL = 0x7f
)

// eraseSeq steps the cursor back, blanks the cell, steps back again.
const eraseSeq = "\b \b"

// ReadLine reads one line of console input into p, echoing as it goes,
// and returns the number of bytes accepted. Carriage return terminates
// the line ("\r\n" is echoed, CR is not stored); backspace and DEL
// erase the previous byte, echoing "\b \b", and are ignored on an empty
// line; everything else is echoed and stored.
//
// When p is full, further data bytes are dropped without echo so the
// terminal keeps matching the buffer; erase and CR still work. An
// overlong line is truncated, never an overrun.
func (u *UART) ReadLine(p []byte) int {
	n := 0
	for {
		c, _ := u.ReadByte()
		switch {
		case c == charCR:
			u.WriteString("\r\n")
			u.dbgLine()
			return n
		case c == charBS || c == charDEL:
			if n > 0 {
				u.WriteString(eraseSeq)
				n--
				u.dbgErase()
			}
		default:
			if n == len(p) {
				u.dbgDrop()
				continue
			}
			_ = u.WriteByte(c)
			p[n] = c
			n++
		}
	}
}
