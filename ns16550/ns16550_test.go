package ns16550

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// newTestUART returns a driver over a fresh simulated block in
// power-up default state.
func newTestUART() (*UART, *Sim) {
	sim := NewSim()
	return New(sim), sim
}

func TestConfigure_FinalRegisterState(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()

	lcr := sim.Peek(LCR)
	if lcr&LCRDLAB != 0 {
		t.Fatalf("LCR=%#02x: DLAB still set after Configure", lcr)
	}
	if lcr&0x03 != LCRWordLen8 {
		t.Fatalf("LCR=%#02x: word length bits = %d, want %d", lcr, lcr&0x03, LCRWordLen8)
	}
	if ier := sim.Peek(IER); ier&IERRxAvail == 0 {
		t.Fatalf("IER=%#02x: receive-available bit not set", ier)
	}
}

func TestConfigure_DivisorWrittenUnderDLAB(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()

	var dllWrites, dlmWrites []RegWrite
	for _, w := range sim.Journal() {
		if !w.DLAB {
			continue
		}
		switch w.Off {
		case DLL:
			dllWrites = append(dllWrites, w)
		case DLM:
			dlmWrites = append(dlmWrites, w)
		}
	}
	if len(dllWrites) != 1 || dllWrites[0].Val != 0x03 {
		t.Fatalf("DLL writes under DLAB: %+v, want one write of 0x03", dllWrites)
	}
	if len(dlmWrites) != 1 || dlmWrites[0].Val != 0x00 {
		t.Fatalf("DLM writes under DLAB: %+v, want one write of 0x00", dlmWrites)
	}
	if sim.Peek(DLL) != 0x03 || sim.PeekDLM() != 0x00 {
		t.Fatalf("latched divisor = %#02x/%#02x, want 0x03/0x00", sim.Peek(DLL), sim.PeekDLM())
	}
}

func TestWriteByte_WaitsForTxIdle(t *testing.T) {
	const busyPolls = 5

	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()
	before := sim.LSRReads()

	sim.TxBusyFor(busyPolls)
	if err := u.WriteByte('x'); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}

	if got := sim.LSRReads() - before; got != busyPolls+1 {
		t.Fatalf("LSR reads = %d, want %d", got, busyPolls+1)
	}
	if sim.THRWrites() != 1 {
		t.Fatalf("THR writes = %d, want 1", sim.THRWrites())
	}
	if got := sim.TxString(); got != "x" {
		t.Fatalf("transmit log = %q, want %q", got, "x")
	}
}

func TestReadLine_CRTerminates(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()

	sim.FeedString("hi\r")
	buf := make([]byte, 16)
	n := u.ReadLine(buf)

	if n != 2 || string(buf[:n]) != "hi" {
		t.Fatalf("got n=%d line=%q, want 2, \"hi\"", n, string(buf[:n]))
	}
	if got := sim.TxString(); got != "hi\r\n" {
		t.Fatalf("echo = %q, want %q", got, "hi\r\n")
	}
}

func TestReadLine_LFIsNotATerminator(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()

	// LF is an ordinary byte; only CR ends the line.
	sim.FeedString("a\nb\r")
	buf := make([]byte, 16)
	n := u.ReadLine(buf)

	if string(buf[:n]) != "a\nb" {
		t.Fatalf("line = %q, want %q", string(buf[:n]), "a\nb")
	}
}

func TestReadLine_BackspaceErases(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()

	sim.FeedString("hEll\bo\r")
	buf := make([]byte, 16)
	n := u.ReadLine(buf)

	if string(buf[:n]) != "hElo" {
		t.Fatalf("line = %q, want %q", string(buf[:n]), "hElo")
	}
	echo := sim.TxString()
	if want := "hEll\b \bo\r\n"; echo != want {
		t.Fatalf("echo = %q, want %q", echo, want)
	}
	if c := strings.Count(echo, eraseSeq); c != 1 {
		t.Fatalf("erase sequence echoed %d times, want 1", c)
	}
}

func TestReadLine_DELActsAsBackspace(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()

	sim.FeedString("ab\x7fc\r")
	buf := make([]byte, 16)
	n := u.ReadLine(buf)

	if string(buf[:n]) != "ac" {
		t.Fatalf("line = %q, want %q", string(buf[:n]), "ac")
	}
}

func TestReadLine_BackspaceOnEmptyIsNoop(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()

	sim.FeedString("\bhi\r")
	buf := make([]byte, 16)
	n := u.ReadLine(buf)

	if string(buf[:n]) != "hi" {
		t.Fatalf("line = %q, want %q", string(buf[:n]), "hi")
	}
	echo := sim.TxString()
	if strings.Contains(echo, eraseSeq) {
		t.Fatalf("echo %q contains an erase sequence for the leading backspace", echo)
	}
	if echo != "hi\r\n" {
		t.Fatalf("echo = %q, want %q", echo, "hi\r\n")
	}
}

func TestWriteString_RoundTrip(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()

	const msg = "The quick brown fox jumps over the lazy dog\r\n"
	u.WriteString(msg)

	if got := sim.TxString(); got != msg {
		t.Fatalf("transmit log = %q, want %q", got, msg)
	}
}

func TestWrite_ImplementsIOWriter(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()

	payload := []byte{0x00, 'a', 0xff, '\r'}
	n, err := u.Write(payload)
	if err != nil || n != len(payload) {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	if !bytes.Equal(sim.Transmitted(), payload) {
		t.Fatalf("transmit log = %v, want %v", sim.Transmitted(), payload)
	}
}

func TestReadLine_TruncatesWithoutEcho(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()

	sim.FeedString("abcdef\r")
	buf := make([]byte, 4)
	n := u.ReadLine(buf)

	if string(buf[:n]) != "abcd" {
		t.Fatalf("line = %q, want %q", string(buf[:n]), "abcd")
	}
	// Dropped bytes must not be echoed, so the terminal matches the buffer.
	if got := sim.TxString(); got != "abcd\r\n" {
		t.Fatalf("echo = %q, want %q", got, "abcd\r\n")
	}
}

func TestReadLine_EraseAfterTruncationReopensBuffer(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()

	sim.FeedString("abc\bd\r")
	buf := make([]byte, 2)
	n := u.ReadLine(buf)

	if string(buf[:n]) != "ad" {
		t.Fatalf("line = %q, want %q", string(buf[:n]), "ad")
	}
}

func TestTryReadByte(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()

	if b, ok := u.TryReadByte(); ok {
		t.Fatalf("TryReadByte on idle line: got (%#02x, true)", b)
	}
	sim.FeedString("Q")
	b, ok := u.TryReadByte()
	if !ok || b != 'Q' {
		t.Fatalf("TryReadByte = (%q, %v), want ('Q', true)", b, ok)
	}
}

func TestFlush_WaitsForTransmitterEmpty(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	before := sim.LSRReads()

	sim.TxBusyFor(3)
	u.Flush()

	if got := sim.LSRReads() - before; got != 4 {
		t.Fatalf("LSR reads = %d, want 4", got)
	}
}

func TestReadByteContext_Cancellation(t *testing.T) {
	u, _ := newTestUART()
	u.Configure()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := u.ReadByteContext(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err = %v, want DeadlineExceeded", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("ReadByteContext did not observe the deadline")
	}
}

func TestReadLineContext_RejectsOverlongLine(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()

	sim.FeedString("abcd\r")
	buf := make([]byte, 3)
	n, err := u.ReadLineContext(context.Background(), buf)

	if !errors.Is(err, ErrBufferFull) {
		t.Fatalf("err = %v, want ErrBufferFull", err)
	}
	if n != 3 || string(buf[:n]) != "abc" {
		t.Fatalf("got n=%d line=%q, want 3, \"abc\"", n, string(buf[:n]))
	}
}

func TestReadLineContext_Completes(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()

	sim.FeedString("ok\r")
	buf := make([]byte, 8)
	n, err := u.ReadLineContext(context.Background(), buf)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || string(buf[:n]) != "ok" {
		t.Fatalf("got n=%d line=%q, want 2, \"ok\"", n, string(buf[:n]))
	}
	if got := sim.TxString(); got != "ok\r\n" {
		t.Fatalf("echo = %q, want %q", got, "ok\r\n")
	}
}

func TestWriteByteContext_DeliversAfterBusy(t *testing.T) {
	u, sim := newTestUART()
	u.Configure()
	sim.ClearTx()

	sim.TxBusyFor(2)
	if err := u.WriteByteContext(context.Background(), 'z'); err != nil {
		t.Fatalf("WriteByteContext: %v", err)
	}
	if got := sim.TxString(); got != "z" {
		t.Fatalf("transmit log = %q, want %q", got, "z")
	}
}
