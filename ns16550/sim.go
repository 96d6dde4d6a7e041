// ns16550/sim.go

//go:build !tinygo

package ns16550

import (
	"io"
	"sync"

	"go.uber.org/zap"
)

// Sim is a software model of one 16550 register block, for host builds:
// unit tests and the cmd/ tools run the driver against it instead of
// real registers. It models the DLAB multiplexing of offsets 0 and 1,
// latches the write-mode registers, synthesises LSR from an internal
// receive ring, and keeps a transmit log plus a journal of every write.
//
// Sim is safe for concurrent use: a feeder goroutine may call Feed
// while the driver polls from another goroutine.
type Sim struct {
	mu sync.Mutex

	ier, fcr, lcr, mcr, spr uint8
	dll, dlm                uint8

	rx ring
	tx []byte

	// Test knobs/observations.
	lsrReads  int
	thrWrites int
	txBusy    int // LSR reads left that report the transmitter busy
	journal   []RegWrite

	sink  io.Writer
	trace *zap.SugaredLogger
}

// RegWrite is one journal entry: a register write together with the
// DLAB state in force when it happened.
type RegWrite struct {
	Off  uint8
	Val  uint8
	DLAB bool
}

// NewSim returns a simulated block in power-up default state
// (IER=0, LCR=0, FCR=0, MCR=0, transmitter idle, no data).
func NewSim() *Sim {
	return &Sim{}
}

// SetTxSink mirrors every transmitted byte to w, so a console tool can
// show echo output live. Pass nil to detach.
func (s *Sim) SetTxSink(w io.Writer) {
	s.mu.Lock()
	s.sink = w
	s.mu.Unlock()
}

// SetTrace logs every register access through l at debug level. Pass
// nil to disable.
func (s *Sim) SetTrace(l *zap.SugaredLogger) {
	s.mu.Lock()
	s.trace = l
	s.mu.Unlock()
}

func (s *Sim) dlab() bool {
	return s.lcr&LCRDLAB != 0
}

// Read8 implements RegisterBlock.
func (s *Sim) Read8(off uint8) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v uint8
	switch {
	case off == RHR && s.dlab():
		v = s.dll
	case off == RHR:
		v = s.rx.get()
	case off == IER && s.dlab():
		v = s.dlm
	case off == IER:
		v = s.ier
	case off == ISR:
		v = 0x01 // no interrupt pending
	case off == LCR:
		v = s.lcr
	case off == MCR:
		v = s.mcr
	case off == LSR:
		s.lsrReads++
		if s.txBusy > 0 {
			s.txBusy--
		} else {
			v = LSRTxIdle | LSRTxEmpty
		}
		if s.rx.len() > 0 {
			v |= LSRRxReady
		}
	case off == MSR:
		v = 0
	case off == SPR:
		v = s.spr
	}
	if s.trace != nil {
		s.trace.Debugw("rd", "reg", regName(off, false, s.dlab()), "val", v)
	}
	return v
}

// Write8 implements RegisterBlock.
func (s *Sim) Write8(off uint8, v uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.journal = append(s.journal, RegWrite{Off: off, Val: v, DLAB: s.dlab()})
	if s.trace != nil {
		s.trace.Debugw("wr", "reg", regName(off, true, s.dlab()), "val", v)
	}
	switch {
	case off == THR && s.dlab():
		s.dll = v
	case off == THR:
		s.thrWrites++
		s.tx = append(s.tx, v)
		if s.sink != nil {
			_, _ = s.sink.Write([]byte{v})
		}
	case off == IER && s.dlab():
		s.dlm = v
	case off == IER:
		s.ier = v
	case off == FCR:
		s.fcr = v
	case off == LCR:
		s.lcr = v
	case off == MCR:
		s.mcr = v
	case off == SPR:
		s.spr = v
	}
}

// Feed queues p on the simulated receive line.
func (s *Sim) Feed(p []byte) {
	s.mu.Lock()
	for _, b := range p {
		s.rx.put(b)
	}
	s.mu.Unlock()
}

// FeedString queues the bytes of str on the simulated receive line.
func (s *Sim) FeedString(str string) {
	s.Feed([]byte(str))
}

// Transmitted returns a copy of every byte written to THR so far.
func (s *Sim) Transmitted() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.tx))
	copy(out, s.tx)
	return out
}

// TxString returns the transmit log as a string.
func (s *Sim) TxString() string {
	return string(s.Transmitted())
}

// ClearTx discards the transmit log.
func (s *Sim) ClearTx() {
	s.mu.Lock()
	s.tx = s.tx[:0]
	s.mu.Unlock()
}

// TxBusyFor makes the next n LSR reads report the transmitter busy
// (LSR bits 5 and 6 clear), then idle again.
func (s *Sim) TxBusyFor(n int) {
	s.mu.Lock()
	s.txBusy = n
	s.mu.Unlock()
}

// LSRReads returns how many times LSR has been read.
func (s *Sim) LSRReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lsrReads
}

// THRWrites returns how many bytes have been written to THR.
func (s *Sim) THRWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thrWrites
}

// Journal returns a copy of every register write observed, in order.
func (s *Sim) Journal() []RegWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RegWrite, len(s.journal))
	copy(out, s.journal)
	return out
}

// Peek returns the latched value of a write-mode register without the
// side effects of a bus read.
func (s *Sim) Peek(off uint8) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch off {
	case DLL:
		return s.dll
	case IER:
		return s.ier
	case FCR:
		return s.fcr
	case LCR:
		return s.lcr
	case MCR:
		return s.mcr
	case SPR:
		return s.spr
	}
	return 0
}

// PeekDLM returns the latched divisor high byte. DLM shares offset 1
// with IER, so it needs its own accessor.
func (s *Sim) PeekDLM() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dlm
}

func regName(off uint8, write, dlab bool) string {
	switch off {
	case 0:
		if dlab {
			return "DLL"
		}
		if write {
			return "THR"
		}
		return "RHR"
	case 1:
		if dlab {
			return "DLM"
		}
		return "IER"
	case 2:
		if write {
			return "FCR"
		}
		return "ISR"
	case 3:
		return "LCR"
	case 4:
		return "MCR"
	case 5:
		return "LSR"
	case 6:
		return "MSR"
	case 7:
		return "SPR"
	}
	return "?"
}
