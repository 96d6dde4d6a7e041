// ns16550/context.go

package ns16550

import (
	"context"
	"errors"
)

// ErrBufferFull is returned by ReadLineContext when a data byte arrives
// while the caller's buffer is already full.
var ErrBufferFull = errors.New("ns16550: line buffer full")

// pollLSRContext is pollLSR with cancellation: each spin checks the
// context, so a deadline surfaces as a timeout instead of a hung
// goroutine. The poll itself stays a busy-wait.
func (u *UART) pollLSRContext(ctx context.Context, mask uint8) error {
	for u.regs.Read8(LSR)&mask == 0 {
		u.dbgPollSpin()
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// WriteByteContext is WriteByte with cancellation. On ctx expiry the
// byte has not been written.
func (u *UART) WriteByteContext(ctx context.Context, c byte) error {
	if err := u.pollLSRContext(ctx, LSRTxIdle); err != nil {
		return err
	}
	u.regs.Write8(THR, c)
	u.dbgTxByte()
	return nil
}

// ReadByteContext is ReadByte with cancellation.
func (u *UART) ReadByteContext(ctx context.Context) (byte, error) {
	if err := u.pollLSRContext(ctx, LSRRxReady); err != nil {
		return 0, err
	}
	b := u.regs.Read8(RHR)
	u.dbgRxByte()
	return b, nil
}

// FlushContext is Flush with cancellation.
func (u *UART) FlushContext(ctx context.Context) error {
	return u.pollLSRContext(ctx, LSRTxEmpty)
}

// ReadLineContext is ReadLine with cancellation and a reject overflow
// policy: where ReadLine silently drops data bytes once p is full,
// ReadLineContext returns ErrBufferFull together with the bytes
// accepted so far. On ctx expiry it returns the partial count and
// ctx.Err(); the line on the wire is lost.
func (u *UART) ReadLineContext(ctx context.Context, p []byte) (int, error) {
	n := 0
	for {
		c, err := u.ReadByteContext(ctx)
		if err != nil {
			return n, err
		}
		switch {
		case c == charCR:
			u.WriteString("\r\n")
			u.dbgLine()
			return n, nil
		case c == charBS || c == charDEL:
			if n > 0 {
				u.WriteString(eraseSeq)
				n--
				u.dbgErase()
			}
		default:
			if n == len(p) {
				u.dbgDrop()
				return n, ErrBufferFull
			}
			_ = u.WriteByte(c)
			p[n] = c
			n++
		}
	}
}
