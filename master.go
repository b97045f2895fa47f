package spislave

import (
	"errors"

	"golang.org/x/exp/constraints"
	"tinygo.org/x/drivers"
)

// Master bit-bangs the SPI protocol onto a Slave's line interface, taking the
// role the bus master plays on real hardware. It implements the drivers.SPI
// interface so TinyGo peripheral drivers can be pointed at a simulated slave.
//
// The master samples MISO at the instant of the mode's sampling edge. Slaves
// present their primed byte's leading bit as soon as SetNextByte runs and
// re-drive that same bit on their first drive edge, so with phase-0 modes the
// master observes the leading bit twice; phase-1 modes, where the drive edge
// precedes the sample edge, exchange bytes exactly.
type Master struct {
	bus   *Slave
	mode  Mode
	order BitOrder
}

var _ drivers.SPI = (*Master)(nil)

// NewMaster returns a Master driving bus. Mode and order must match the
// slave's configuration, as on a real bus.
func NewMaster(bus *Slave, mode Mode, order BitOrder) *Master {
	return &Master{bus: bus, mode: mode, order: order}
}

// Select restores the clock to its idle level and asserts chip select,
// starting a transaction.
func (m *Master) Select() {
	m.bus.SetClock(m.mode.cpol())
	m.bus.SetSelect(true)
}

// Deselect releases chip select, ending the transaction and discarding any
// partial exchange on the slave side.
func (m *Master) Deselect() {
	m.bus.SetSelect(false)
}

// Transfer exchanges a single byte full-duplex: b is shifted out on MOSI
// while the slave's response is shifted in from MISO. The caller must have
// selected the slave; clocking an unselected slave is legal but exchanges
// nothing. Never returns an error.
func (m *Master) Transfer(b byte) (byte, error) {
	cpol, cpha := m.mode.cpol(), m.mode.cpha()
	var in byte
	for i := 0; i < 8; i++ {
		var out bool
		if m.order == MSBFirst {
			out = b&0x80 != 0
			b <<= 1
		} else {
			out = b&0x01 != 0
			b >>= 1
		}
		var bit byte
		if !cpha {
			// Output must be stable before the leading edge samples it.
			m.bus.SetMOSI(out)
			bit = b2u[byte](m.bus.ReadMISO())
			m.bus.SetClock(!cpol) // leading edge: slave samples
			m.bus.SetClock(cpol)  // trailing edge: slave drives
		} else {
			m.bus.SetClock(!cpol) // leading edge: slave drives
			m.bus.SetMOSI(out)
			bit = b2u[byte](m.bus.ReadMISO())
			m.bus.SetClock(cpol) // trailing edge: slave samples
		}
		if m.order == MSBFirst {
			in = in<<1 | bit
		} else {
			in = in>>1 | bit<<7
		}
	}
	return in, nil
}

// Tx matches the signature of machine.SPI.Tx and exchanges multiple bytes.
// If r is empty the responses are discarded; if w is empty zeroes are shifted
// out while reading len(r) bytes.
func (m *Master) Tx(w, r []byte) error {
	switch {
	case len(w) == len(r):
		for i, b := range w {
			r[i], _ = m.Transfer(b)
		}
	case len(r) == 0:
		for _, b := range w {
			m.Transfer(b)
		}
	case len(w) == 0:
		for i := range r {
			r[i], _ = m.Transfer(0)
		}
	default:
		return errors.New("unhandled SPI buffer length mismatch case")
	}
	return nil
}

// b2u converts a bool to 0 or 1.
func b2u[T constraints.Unsigned](b bool) T {
	if b {
		return 1
	}
	return 0
}
