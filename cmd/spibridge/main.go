// Command spibridge attaches a simulated SPI scan-code keyboard to a host
// serial port so that external hardware, or another process, can act as the
// bus master.
//
// The wire protocol is one byte per line event. Bytes from the master encode
// the line in the high nibble and the new level in bit 0:
//
//	$10|level  chip select
//	$20|level  clock
//	$30|level  MOSI
//	$40        poll: answer with the current MISO level
//	$60 $XX    latch scan code $XX into the keyboard
//
// The bridge answers with:
//
//	$80|level  MISO changed (or poll answer)
//	$90|level  keyboard IRQ changed
package main

import (
	"bufio"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/burisim/spislave/kbd"
	"github.com/tarm/serial"
)

const (
	evSelect   = 0x10
	evClock    = 0x20
	evMOSI     = 0x30
	evPoll     = 0x40
	evScancode = 0x60
	evMISO     = 0x80
	evIRQ      = 0x90
)

func main() {
	port := flag.String("port", "/dev/ttyUSB0", "Serial port the SPI master is attached to.")
	baud := flag.Int("baud", 115200, "Serial port baud rate.")
	verbose := flag.Bool("v", false, "Log every line event.")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug - 1
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	p, err := serial.OpenPort(&serial.Config{Name: *port, Baud: *baud})
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()
	b := newBridge(p, logger)
	logger.Info("spibridge: keyboard slave attached",
		slog.String("port", *port), slog.Int("baud", *baud))
	if err := b.loop(); err != nil && err != io.EOF {
		log.Fatal(err)
	}
}

type bridge struct {
	kb       *kbd.Keyboard
	rx       *bufio.Reader
	tx       io.Writer
	logger   *slog.Logger
	lastMISO bool
}

func newBridge(rw io.ReadWriter, logger *slog.Logger) *bridge {
	b := &bridge{rx: bufio.NewReader(rw), tx: rw, logger: logger}
	b.kb = kbd.New(kbd.Config{Logger: logger, IRQ: b.irqChanged})
	return b
}

func (b *bridge) loop() error {
	for {
		ev, err := b.rx.ReadByte()
		if err != nil {
			return err
		}
		if err := b.handle(ev); err != nil {
			return err
		}
	}
}

func (b *bridge) handle(ev byte) error {
	bus := b.kb.Bus()
	level := ev&1 != 0
	switch ev & 0xF0 {
	case evSelect:
		bus.SetSelect(level)
	case evClock:
		bus.SetClock(level)
	case evMOSI:
		bus.SetMOSI(level)
	case evPoll:
		return b.reportMISO(true)
	case evScancode:
		code, err := b.rx.ReadByte()
		if err != nil {
			return err
		}
		b.kb.PushScancode(code)
		return nil
	default:
		b.logger.Warn("spibridge: unknown event byte", slog.Uint64("ev", uint64(ev)))
		return nil
	}
	return b.reportMISO(false)
}

// reportMISO writes a MISO event if the level changed since the last report,
// or unconditionally when answering a poll.
func (b *bridge) reportMISO(force bool) error {
	miso := b.kb.Bus().ReadMISO()
	if !force && miso == b.lastMISO {
		return nil
	}
	b.lastMISO = miso
	_, err := b.tx.Write([]byte{evMISO | b2u(miso)})
	return err
}

func (b *bridge) irqChanged(level bool) {
	b.tx.Write([]byte{evIRQ | b2u(level)})
}

func b2u(b bool) byte {
	if b {
		return 1
	}
	return 0
}
