// Runs the ns16550 line discipline over a real host serial port. A
// port-backed register block synthesises LSR from a receiver-fed byte
// queue and maps THR writes straight onto the port, so the same driver
// code that talks to memory-mapped hardware talks to /dev/ttyUSB0.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpillora/backoff"
	"github.com/tarm/serial"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/junkv-dev/tinygo-ns16550/ns16550"
)

var (
	dev      = flag.String("dev", "/dev/ttyUSB0", "serial device to open")
	baud     = flag.Int("baud", 115200, "baud rate for the host port")
	attempts = flag.Int("attempts", 5, "open retries before giving up")
	lineMax  = flag.Int("linemax", 256, "line buffer capacity in bytes")
)

// portBlock adapts a host serial port to the driver's register
// interface. Received bytes arrive through rx from the receiver
// goroutine; LSR reports rx-ready from the queue depth and the
// transmitter always idle (the OS buffers writes). Writes to the setup
// registers are latched but have no wire meaning here.
type portBlock struct {
	port *serial.Port
	rx   chan byte
	log  *zap.SugaredLogger

	latch [8]uint8
}

func newPortBlock(port *serial.Port, log *zap.SugaredLogger) *portBlock {
	return &portBlock{port: port, rx: make(chan byte, 4096), log: log}
}

// receive pumps port reads into the rx queue until the port errors or
// ctx is cancelled.
func (b *portBlock) receive(ctx context.Context) error {
	buf := make([]byte, 128)
	for {
		n, err := b.port.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		for _, c := range buf[:n] {
			select {
			case b.rx <- c:
			default:
				b.log.Warnw("rx queue full, byte dropped", "byte", c)
			}
		}
	}
}

func (b *portBlock) Read8(off uint8) uint8 {
	switch off {
	case ns16550.LSR:
		v := uint8(ns16550.LSRTxIdle | ns16550.LSRTxEmpty)
		if len(b.rx) > 0 {
			v |= ns16550.LSRRxReady
		} else {
			// Keep the driver's poll from spinning a host core.
			time.Sleep(500 * time.Microsecond)
		}
		return v
	case ns16550.RHR:
		select {
		case c := <-b.rx:
			return c
		default:
			return 0
		}
	default:
		return b.latch[off]
	}
}

func (b *portBlock) Write8(off uint8, v uint8) {
	if off == ns16550.THR {
		if _, err := b.port.Write([]byte{v}); err != nil {
			b.log.Errorw("port write", "err", err)
		}
		return
	}
	b.latch[off] = v
}

func openPort(log *zap.SugaredLogger) (*serial.Port, error) {
	b := &backoff.Backoff{Min: 100 * time.Millisecond, Max: 5 * time.Second}
	for i := 0; ; i++ {
		port, err := serial.OpenPort(&serial.Config{Name: *dev, Baud: *baud})
		if err == nil {
			return port, nil
		}
		if i+1 >= *attempts {
			return nil, err
		}
		d := b.Duration()
		log.Warnw("open failed, retrying", "dev", *dev, "err", err, "backoff", d)
		time.Sleep(d)
	}
}

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	port, err := openPort(log)
	if err != nil {
		log.Fatalw("open port", "dev", *dev, "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blk := newPortBlock(port, log)
	uart := ns16550.New(blk)
	uart.Configure()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Closing the port unblocks the receiver's blocking Read.
		<-ctx.Done()
		port.Close()
		return ctx.Err()
	})
	g.Go(func() error { return blk.receive(ctx) })
	g.Go(func() error {
		uart.WriteString("ns16550 bridge ready\r\n")
		buf := make([]byte, *lineMax)
		for {
			n, err := uart.ReadLineContext(ctx, buf)
			switch {
			case errors.Is(err, ns16550.ErrBufferFull):
				log.Warnw("line truncated", "accepted", n, "text", string(buf[:n]))
				continue
			case err != nil:
				return err
			}
			log.Infow("line", "len", n, "text", string(buf[:n]))
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorw("bridge stopped", "err", err)
	}
}
