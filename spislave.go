// Package spislave simulates the bit-level behavior of SPI slave devices.
//
// A slave exposes three serial lines, MOSI, MISO and CLK, plus a select line
// which enables the device. Clock and MOSI writes have no effect while the
// select line is inactive. Two parameters fix the exact flavour of SPI: the
// mode (0-3), which defines the clock idle level and the sampling edge, and
// the bit order, which defines whether bytes travel most or least significant
// bit first.
//
// SPI is full duplex; every 8 clock cycles exchange one byte from the master
// to the slave and one byte from the slave to the master. Use
// (*Slave).SetNextByte to choose what the slave sends on the next exchange.
// It may be called from the byte-complete callback, which fires inline on the
// clock edge that finishes an exchange.
package spislave

import (
	"context"
	"log/slog"
)

// Config parametrizes a Slave. Mode and Order are fixed for the lifetime of
// the device. All callbacks are optional and are invoked synchronously on the
// line-transition call that triggers them.
type Config struct {
	Mode  Mode
	Order BitOrder
	// Logger for structured line-level logging. Per-edge events log at
	// trace level (slog.LevelDebug-1).
	Logger *slog.Logger
	// OnSelect fires when the select line transitions to active.
	OnSelect func()
	// OnDeselect fires when the select line transitions to inactive. Any
	// partially exchanged byte is discarded without firing OnByte.
	OnDeselect func()
	// OnByte fires once a full byte has been exchanged, with the byte
	// received from the master. The callback may call SetNextByte to prime
	// the response for the next exchange; if it does not, zero is sent.
	OnByte func(rx byte)
}

// Slave is a passive SPI device clocked entirely by the external master. It
// reacts synchronously to single line transitions delivered by the host and
// holds no notion of time: if the master stops toggling the clock the slave
// simply remains mid-exchange. Not safe for concurrent use; the host's line
// dispatcher is expected to be the only caller.
type Slave struct {
	mode  Mode
	order BitOrder

	selected bool
	clk      bool
	mosi     bool
	miso     bool

	recvByte  byte
	sendByte  byte
	recvCount int
	sendCount int

	onSelect   func()
	onDeselect func()
	onByte     func(byte)

	logger        *slog.Logger
	_traceenabled bool
}

// NewSlave returns a Slave with all lines low and nothing primed to send.
func NewSlave(cfg Config) *Slave {
	s := &Slave{
		mode:       cfg.Mode,
		order:      cfg.Order,
		onSelect:   cfg.OnSelect,
		onDeselect: cfg.OnDeselect,
		onByte:     cfg.OnByte,
		logger:     cfg.Logger,
	}
	s._traceenabled = s.logger != nil && s.logger.Handler().Enabled(context.Background(), levelTrace)
	return s
}

// SetSelect drives the select line. Activation begins a new transaction:
// leftover bit counts from a previous, possibly aborted exchange are cleared.
// Deactivation discards any partial byte. Repeated calls with the same level
// are no-ops.
func (s *Slave) SetSelect(active bool) {
	if active != s.selected {
		if active {
			s.recvCount, s.sendCount = 0, 0
			s.debug("select")
			if s.onSelect != nil {
				s.onSelect()
			}
		} else {
			s.debug("deselect")
			if s.onDeselect != nil {
				s.onDeselect()
			}
		}
	}
	s.selected = active
}

// SetClock drives the clock line. Only transitions matter: a write with the
// current level is a no-op. The level is tracked even while deselected so
// edge detection stays coherent, but edges are acted on only while selected.
func (s *Slave) SetClock(level bool) {
	if s.clk == level {
		return
	}
	s.clk = level
	if !s.selected {
		return
	}
	s.clockEdge(level != s.mode.cpol())
}

// SetMOSI drives the data-in line. Ignored while deselected: an unselected
// slave must not be influenced by bus traffic meant for other devices
// sharing the lines.
func (s *Slave) SetMOSI(level bool) {
	if !s.selected {
		return
	}
	s.mosi = level
}

// ReadMISO returns the currently driven output level. It may be called at any
// time; tri-stating of an unselected device's output is the board's concern,
// not the slave's.
func (s *Slave) ReadMISO() bool { return s.miso }

// SetNextByte primes the byte sent to the master on the next exchange and
// immediately presents its leading bit on MISO so the master has stable data
// before the first sampling edge. Typically called from the OnByte callback
// to answer a just-received command byte.
func (s *Slave) SetNextByte(b byte) {
	s.sendByte = b
	if s.order == MSBFirst {
		s.miso = b&0x80 != 0
	} else {
		s.miso = b&0x01 != 0
	}
}

// clockEdge handles a genuine clock transition while selected. Each full
// clock period yields exactly one sample edge and one drive edge; which is
// which follows from the configured phase.
func (s *Slave) clockEdge(idleToActive bool) {
	sample := idleToActive != s.mode.cpha()
	if sample {
		// Data line is stable, read MOSI.
		if s.order == MSBFirst {
			s.recvByte <<= 1
			if s.mosi {
				s.recvByte |= 0x01
			}
		} else {
			s.recvByte >>= 1
			if s.mosi {
				s.recvByte |= 0x80
			}
		}
		s.recvCount++
	} else {
		// Data lines may change, present the next output bit.
		if s.order == MSBFirst {
			s.miso = s.sendByte&0x80 != 0
			s.sendByte <<= 1
		} else {
			s.miso = s.sendByte&0x01 != 0
			s.sendByte >>= 1
		}
		s.sendCount++
	}
	if s._traceenabled {
		s.trace("clk",
			slog.Bool("leading", idleToActive),
			slog.Bool("sample", sample),
			slog.Bool("mosi", s.mosi),
			slog.Bool("miso", s.miso),
		)
	}
	if s.recvCount == 8 && s.sendCount == 8 {
		// Sent and received an entire byte. Zero the send register so the
		// next exchange shifts out zeroes unless the handler primes it.
		rx := s.recvByte
		s.recvCount, s.sendCount = 0, 0
		s.sendByte = 0
		s.debug("byte", slog.Uint64("rx", uint64(rx)))
		if s.onByte != nil {
			s.onByte(rx)
		}
	}
}
