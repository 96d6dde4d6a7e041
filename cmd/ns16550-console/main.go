// Interactive demo of the ns16550 line discipline against the
// simulated register block. Keystrokes are fed to the simulated
// receive line in raw mode; driver echo comes back through the
// simulated transmit path onto stdout, so editing behaves exactly as
// it would on a real console.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	tty "github.com/mattn/go-tty"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/junkv-dev/tinygo-ns16550/ns16550"
)

const (
	ctrlC = 0x03
	ctrlD = 0x04
)

var (
	traceRegs = flag.Bool("trace", false, "log every register access")
	lineMax   = flag.Int("linemax", 256, "line buffer capacity in bytes")
)

// pacedBlock throttles the driver's receive poll so the host bridge
// does not spin a core while the line is idle. Transmit polls are
// unaffected (the simulated transmitter is always idle).
type pacedBlock struct {
	inner ns16550.RegisterBlock
}

func (p *pacedBlock) Read8(off uint8) uint8 {
	v := p.inner.Read8(off)
	if off == ns16550.LSR && v&ns16550.LSRRxReady == 0 {
		time.Sleep(200 * time.Microsecond)
	}
	return v
}

func (p *pacedBlock) Write8(off uint8, v uint8) {
	p.inner.Write8(off, v)
}

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	sim := ns16550.NewSim()
	sim.SetTxSink(os.Stdout)
	if *traceRegs {
		sim.SetTrace(log)
	}

	t, err := tty.Open()
	if err != nil {
		log.Fatalw("open tty", "err", err)
	}
	defer t.Close()

	uart := ns16550.New(&pacedBlock{inner: sim})
	uart.Configure()
	uart.WriteString("ns16550 console demo; Ctrl-D quits\r\n> ")

	g, ctx := errgroup.WithContext(context.Background())

	// Keyboard pump: raw keystrokes onto the simulated receive line.
	g.Go(func() error {
		for {
			r, err := t.ReadRune()
			if err != nil {
				return err
			}
			if r == ctrlC || r == ctrlD {
				return errors.New("quit")
			}
			if r > 0xff {
				log.Debugw("ignoring non-byte rune", "rune", r)
				continue
			}
			sim.Feed([]byte{byte(r)})
		}
	})

	// Line discipline: read edited lines and report them.
	g.Go(func() error {
		buf := make([]byte, *lineMax)
		for {
			n, err := uart.ReadLineContext(ctx, buf)
			switch {
			case errors.Is(err, ns16550.ErrBufferFull):
				log.Warnw("line truncated", "accepted", n)
				uart.WriteString("\r\n> ")
				continue
			case err != nil:
				return err
			}
			log.Infow("line accepted", "len", n, "text", string(buf[:n]))
			uart.WriteString("> ")
		}
	})

	if err := g.Wait(); err != nil {
		log.Infow("console closed", "reason", err)
	}
}
