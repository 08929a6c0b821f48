package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/busforge/axi/mem"
	"github.com/busforge/axi/platform"
)

var roundTripOpts struct {
	words        int
	start        string
	stride       uint64
	memSize      uint64
	banks        int
	latency      int
	maxBurst     int
	burstTimeout int
	fifoDepth    int
	maxCycles    uint64
}

var roundTripCmd = &cobra.Command{
	Use:   "roundtrip",
	Short: "Write words through the DMA writer and read them back.",
	Long: `roundtrip writes every address with its own value through the burst ` +
		`writer, reads all the addresses back through the burst reader and ` +
		`compares.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runRoundTrip()
	},
}

func init() {
	f := roundTripCmd.Flags()
	f.IntVar(&roundTripOpts.words, "words", 1000, "number of words")
	f.StringVar(&roundTripOpts.start, "start", "0", "first address")
	f.Uint64Var(&roundTripOpts.stride, "stride", 8,
		"distance between addresses, in bytes")
	f.Uint64Var(&roundTripOpts.memSize, "mem-size", 1*mem.MB,
		"memory capacity, in bytes")
	f.IntVar(&roundTripOpts.banks, "banks", 2, "number of memory banks")
	f.IntVar(&roundTripOpts.latency, "latency", 10,
		"memory latency, in cycles")
	f.IntVar(&roundTripOpts.maxBurst, "max-burst", 16, "beats per burst")
	f.IntVar(&roundTripOpts.burstTimeout, "burst-timeout", 31,
		"cycles a partial burst waits for more addresses")
	f.IntVar(&roundTripOpts.fifoDepth, "fifo-depth", 16,
		"depth of the write data FIFO")
	f.Uint64Var(&roundTripOpts.maxCycles, "max-cycles", 10_000_000,
		"cycle limit of each pass")
}

func runRoundTrip() error {
	start, err := parseUint(roundTripOpts.start)
	if err != nil {
		return fmt.Errorf("start address: %w", err)
	}

	s, err := newSession()
	if err != nil {
		return err
	}

	sys := s.configure(platform.MakeBuilder().
		WithMemory(roundTripOpts.memSize, roundTripOpts.banks).
		WithMemoryLatency(roundTripOpts.latency).
		WithMaxBurstLength(roundTripOpts.maxBurst).
		WithBurstCreationTimeout(roundTripOpts.burstTimeout).
		WithFIFODepth(roundTripOpts.fifoDepth)).
		BuildMemorySystem("System")

	if err := s.start(sys, sys.Domain); err != nil {
		return err
	}

	addrs := make([]uint64, roundTripOpts.words)
	for i := range addrs {
		addrs[i] = start + uint64(i)*roundTripOpts.stride
	}

	var res platform.RoundTripResult
	if s.monitor != nil {
		bar := s.monitor.CreateProgressBar("Round trip", uint64(2*len(addrs)))
		res, err = sys.RoundTrip(addrs, roundTripOpts.maxCycles, bar)
		s.monitor.CompleteProgressBar(bar)
	} else {
		res, err = sys.RoundTrip(addrs, roundTripOpts.maxCycles, nil)
	}

	printRoundTrip(res)
	s.finish()

	return err
}

func printRoundTrip(res platform.RoundTripResult) {
	fmt.Printf("words:            %d\n", res.Words)
	fmt.Printf("write cycles:     %d\n", res.WriteCycles)
	fmt.Printf("write responses:  %d ok, %d error\n", res.WriteOK, res.WriteErr)
	fmt.Printf("padded beats:     %d\n", res.Padded)
	fmt.Printf("read cycles:      %d\n", res.ReadCycles)
	fmt.Printf("read bursts:      %d\n", res.ReadBursts)
	fmt.Printf("read errors:      %d\n", res.ReadErrors)
	fmt.Printf("mismatches:       %d\n", res.Mismatches)
}
