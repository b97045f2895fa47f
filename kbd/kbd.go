// Package kbd implements an SPI scan-code keyboard controller on top of the
// spislave engine.
//
// The controller presents AT set-1 scan codes over SPI mode 1, MSB first.
// After being selected, the master exchanges two bytes with the device;
// further exchanges in the same selection answer zero.
//
// Read scan code:
//
//	| MOSI | MISO      |
//	|======|===========|
//	| $00  | <X>       |
//	| <X>  | scan code |
//
// Reading clears the internal scan-code register, so a subsequent read
// returns $00 until a new code is pushed.
//
// Write control: a first byte with the high bit set carries a control code
// in its low 7 bits; the response arrives in the second byte.
//
//	$00 - reset the controller
//	$01 - respond $FF if the scan-code register is full, $00 if empty
//
// Unknown control codes respond $00.
package kbd

import (
	"context"
	"log/slog"

	"github.com/burisim/spislave"
)

// Control codes accepted in the low 7 bits of a $80-prefixed first byte.
const (
	ctrlReset  = 0x00
	ctrlStatus = 0x01
)

// Controller transaction state, advanced one exchanged byte at a time.
type state uint8

const (
	stateNotSelected state = iota
	stateNewlySelected
	stateReadyToRead
	stateReadyToRespond
	stateDone
)

// Config parametrizes a Keyboard. Both fields are optional.
type Config struct {
	Logger *slog.Logger
	// IRQ is the interrupt output pin: raised when a scan code is latched,
	// lowered once it has been read out.
	IRQ func(bool)
}

// Keyboard owns an SPI slave engine and implements the scan-code controller
// protocol in its byte-complete handler. The scan-code latch holds a single
// code; pushing while full overwrites the pending one.
type Keyboard struct {
	bus    *spislave.Slave
	irq    func(bool)
	logger *slog.Logger

	state    state
	scancode byte
	full     bool
}

// New returns a Keyboard wired to a fresh mode 1, MSB-first slave engine.
func New(cfg Config) *Keyboard {
	k := &Keyboard{irq: cfg.IRQ, logger: cfg.Logger}
	k.bus = spislave.NewSlave(spislave.Config{
		Mode:       spislave.Mode1,
		Order:      spislave.MSBFirst,
		Logger:     cfg.Logger,
		OnSelect:   k.selected,
		OnDeselect: k.deselected,
		OnByte:     k.byteExchanged,
	})
	k.Reset()
	return k
}

// Bus returns the slave engine whose lines the master drives.
func (k *Keyboard) Bus() *spislave.Slave { return k.bus }

// PushScancode latches code and raises the interrupt line. Called by the
// host when the underlying keyboard produces a new code.
func (k *Keyboard) PushScancode(code byte) {
	k.scancode = code
	k.full = true
	k.debug("push", slog.Uint64("scancode", uint64(code)))
	k.setIRQ(true)
}

// Reset returns the controller to its power-on state: latch empty, interrupt
// deasserted, any transaction in progress forgotten.
func (k *Keyboard) Reset() {
	k.state = stateNotSelected
	k.scancode = 0
	k.full = false
	k.setIRQ(false)
}

func (k *Keyboard) selected()   { k.state = stateNewlySelected }
func (k *Keyboard) deselected() { k.state = stateNotSelected }

func (k *Keyboard) byteExchanged(rx byte) {
	switch k.state {
	case stateNewlySelected:
		if rx&0x80 != 0 {
			k.state = stateReadyToRespond
			k.bus.SetNextByte(k.control(rx & 0x7F))
			return
		}
		k.state = stateReadyToRead
		k.bus.SetNextByte(k.scancode)
		k.debug("read", slog.Uint64("scancode", uint64(k.scancode)))
		// Reading consumes the latched code.
		k.scancode = 0
		k.full = false
		k.setIRQ(false)
	case stateReadyToRead, stateReadyToRespond:
		k.state = stateDone
		k.bus.SetNextByte(0)
	default:
		k.bus.SetNextByte(0)
	}
}

// control handles a control byte and returns its response.
func (k *Keyboard) control(ctrl byte) byte {
	k.debug("control", slog.Uint64("ctrl", uint64(ctrl)))
	switch ctrl {
	case ctrlReset:
		k.Reset()
		return 0
	case ctrlStatus:
		if k.full {
			return 0xFF
		}
		return 0
	}
	return 0
}

func (k *Keyboard) setIRQ(level bool) {
	if k.irq != nil {
		k.irq(level)
	}
}

func (k *Keyboard) debug(msg string, attrs ...slog.Attr) {
	if k.logger != nil {
		k.logger.LogAttrs(context.Background(), slog.LevelDebug, "kbd:"+msg, attrs...)
	}
}
