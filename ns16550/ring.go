// ns16550/ring.go

//go:build !tinygo

package ns16550

// Fixed-size byte ring for the simulated receive path. Oldest byte is
// dropped on overflow, like a hardware FIFO overrun.

type ring struct {
	buf        [512]byte
	head, tail int
}

func (r *ring) len() int {
	if r.head >= r.tail {
		return r.head - r.tail
	}
	return len(r.buf) - r.tail + r.head
}

func (r *ring) put(b byte) {
	next := (r.head + 1) % len(r.buf)
	if next == r.tail {
		// drop oldest
		r.tail = (r.tail + 1) % len(r.buf)
	}
	r.buf[r.head] = b
	r.head = next
}

func (r *ring) get() byte {
	if r.len() == 0 {
		return 0
	}
	b := r.buf[r.tail]
	r.tail = (r.tail + 1) % len(r.buf)
	return b
}
