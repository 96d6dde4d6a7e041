// ns16550/debug.go

//go:build ns16550debug

package ns16550

import "sync/atomic"

// Stats holds counters since the last reset. Built only under the
// ns16550debug tag; the release build carries no-op stubs.
type Stats struct {
	PollSpins uint32 // LSR polls that found the ready bit clear
	TxBytes   uint32 // bytes written to THR
	RxBytes   uint32 // bytes read from RHR
	Lines     uint32 // lines terminated by CR in ReadLine*
	Erases    uint32 // backspace/DEL erasures applied
	Drops     uint32 // data bytes refused because the line buffer was full
}

var stats Stats

// DebugReset zeroes the counters.
func DebugReset() {
	stats = Stats{}
}

// DebugStats returns a copy of the counters.
func DebugStats() Stats {
	return Stats{
		PollSpins: atomic.LoadUint32(&stats.PollSpins),
		TxBytes:   atomic.LoadUint32(&stats.TxBytes),
		RxBytes:   atomic.LoadUint32(&stats.RxBytes),
		Lines:     atomic.LoadUint32(&stats.Lines),
		Erases:    atomic.LoadUint32(&stats.Erases),
		Drops:     atomic.LoadUint32(&stats.Drops),
	}
}

func (u *UART) dbgPollSpin() { atomic.AddUint32(&stats.PollSpins, 1) }
func (u *UART) dbgTxByte()   { atomic.AddUint32(&stats.TxBytes, 1) }
func (u *UART) dbgRxByte()   { atomic.AddUint32(&stats.RxBytes, 1) }
func (u *UART) dbgLine()     { atomic.AddUint32(&stats.Lines, 1) }
func (u *UART) dbgErase()    { atomic.AddUint32(&stats.Erases, 1) }
func (u *UART) dbgDrop()     { atomic.AddUint32(&stats.Drops, 1) }
