// Command spianalyze decodes Saleae digital capture files of an SPI bus into
// byte-level transactions, one per chip-select assertion. With -replay the
// captured master bytes are additionally driven into a simulated scan-code
// keyboard slave to recover what such a device would have answered on MISO.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/burisim/spislave"
	"github.com/burisim/spislave/kbd"
	"github.com/soypat/saleae"
	"github.com/soypat/saleae/analyzers"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "spianalyze - Decode Binary Saleae digital data files of SPI slave transactions.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	mosi := flag.String("f-mosi", "digital_1.bin", "Input filename: SPI MOSI data.")
	enable := flag.String("f-cs", "digital_0.bin", "Input filename: SPI CS data.")
	clk := flag.String("f-clk", "digital_2.bin", "Input filename: SPI clock data.")
	output := flag.String("o", "transactions.txt", "Output filename for decoded transactions.")
	replay := flag.Bool("replay", false, "Replay captured master bytes against a simulated keyboard slave.")
	key := flag.String("key", "", "Hex scan code latched into the simulated keyboard before each replayed transaction. Implies -replay.")
	flag.Parse()

	var an analysis
	an.Replay = *replay
	if *key != "" {
		code, err := strconv.ParseUint(*key, 16, 8)
		if err != nil {
			log.Fatal("invalid -key value: ", err)
		}
		an.Scancode = byte(code)
		an.HaveScancode = true
		an.Replay = true
	}
	start := time.Now()
	if err := an.run(*mosi, *clk, *enable, *output); err != nil {
		log.Fatal(err.Error())
	}
	log.Println("finished in", time.Since(start))
}

type analysis struct {
	Replay       bool
	HaveScancode bool
	Scancode     byte
}

func (an *analysis) run(fmosi, fclk, fcs, output string) error {
	txs, err := processSpiFiles(fmosi, fclk, fcs)
	if err != nil {
		return err
	}
	fp, err := os.Create(output)
	if err != nil {
		return err
	}
	defer fp.Close()
	for i, tx := range txs {
		fmt.Fprintf(fp, "tx%-4d t=%f mosi=%#x", i, tx.StartTime(), tx.SDO)
		if an.Replay {
			fmt.Fprintf(fp, " miso=%#x", an.replayKeyboard(tx.SDO))
		}
		fmt.Fprintln(fp)
	}
	return nil
}

func processSpiFiles(fmosi, fclk, fcs string) ([]analyzers.TxSPI, error) {
	mosi, err := opendigital(fmosi)
	if err != nil {
		return nil, err
	}
	clk, err := opendigital(fclk)
	if err != nil {
		return nil, err
	}
	cs, err := opendigital(fcs)
	if err != nil {
		return nil, err
	}
	spi := analyzers.SPI{}
	txs, _ := spi.Scan(clk, cs, mosi, mosi)
	return txs, nil
}

func opendigital(filename string) (*saleae.DigitalFile, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	df, err := saleae.ReadDigitalFile(fp)
	if err != nil {
		return nil, err
	}
	return df, nil
}

// replayKeyboard drives one captured transaction's master bytes into a fresh
// simulated keyboard controller and returns its MISO responses.
func (an *analysis) replayKeyboard(mosi []byte) []byte {
	k := kbd.New(kbd.Config{})
	if an.HaveScancode {
		k.PushScancode(an.Scancode)
	}
	m := spislave.NewMaster(k.Bus(), spislave.Mode1, spislave.MSBFirst)
	r := make([]byte, len(mosi))
	m.Select()
	m.Tx(mosi, r)
	m.Deselect()
	return r
}
