package spislave

// Mode selects one of the four standard SPI clock configurations, encoding
// clock polarity (idle level) and clock phase (which edge samples data).
type Mode uint8

const (
	Mode0 Mode = iota // CPOL=0 CPHA=0: clock idles low, sample on leading (rising) edge.
	Mode1             // CPOL=0 CPHA=1: clock idles low, sample on trailing (falling) edge.
	Mode2             // CPOL=1 CPHA=0: clock idles high, sample on leading (falling) edge.
	Mode3             // CPOL=1 CPHA=1: clock idles high, sample on trailing (rising) edge.
)

// cpol returns the clock line's idle level.
func (m Mode) cpol() bool { return m == Mode2 || m == Mode3 }

// cpha reports whether data is sampled on the trailing edge of the clock
// cycle instead of the leading edge.
func (m Mode) cpha() bool { return m == Mode1 || m == Mode3 }

func (m Mode) String() string {
	switch m {
	case Mode0:
		return "mode0"
	case Mode1:
		return "mode1"
	case Mode2:
		return "mode2"
	case Mode3:
		return "mode3"
	}
	return "modeUnknown"
}

// BitOrder selects which end of a byte is shifted onto the bus first.
type BitOrder uint8

const (
	MSBFirst BitOrder = iota
	LSBFirst
)

func (o BitOrder) String() string {
	if o == LSBFirst {
		return "lsb-first"
	}
	return "msb-first"
}
