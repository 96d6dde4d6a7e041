// ns16550/debug_stubs.go

//go:build !ns16550debug

package ns16550

type Stats struct{}

func DebugReset()       {}
func DebugStats() Stats { return Stats{} }

func (u *UART) dbgPollSpin() {}
func (u *UART) dbgTxByte()   {}
func (u *UART) dbgRxByte()   {}
func (u *UART) dbgLine()     {}
func (u *UART) dbgErase()    {}
func (u *UART) dbgDrop()     {}
