package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/busforge/axi/platform"
)

var peripheralsOpts struct {
	timeout    int
	ramLatency int
	stall      bool
	maxCycles  uint64
}

var peripheralsCmd = &cobra.Command{
	Use:   "peripherals",
	Short: "Access registers through the AXI-Lite connector.",
	Long: `peripherals walks a register file, a RAM, an unmapped address and ` +
		`a counter bank through the AXI-Lite connector. With --stall the RAM ` +
		`stops answering for one access so that the watchdog fires.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runPeripherals()
	},
}

func init() {
	f := peripheralsCmd.Flags()
	f.IntVar(&peripheralsOpts.timeout, "timeout", 1000,
		"connector watchdog timeout, in cycles")
	f.IntVar(&peripheralsOpts.ramLatency, "ram-latency", 4,
		"latency of the RAM, in cycles")
	f.BoolVar(&peripheralsOpts.stall, "stall", false,
		"stall the RAM for one access")
	f.Uint64Var(&peripheralsOpts.maxCycles, "max-cycles", 1_000_000,
		"cycle limit")
}

func runPeripherals() error {
	s, err := newSession()
	if err != nil {
		return err
	}

	sys := s.configure(platform.MakeBuilder().
		WithLiteTimeout(peripheralsOpts.timeout).
		WithRAMLatency(peripheralsOpts.ramLatency)).
		BuildPeripheralSystem("Periph")

	if err := s.start(sys, sys.Domain); err != nil {
		return err
	}

	accesses, err := sys.Exercise(peripheralsOpts.stall, peripheralsOpts.maxCycles)

	fmt.Printf("%-5s  %-10s  %-18s  %-6s  %s\n",
		"op", "addr", "data", "resp", "cycles")
	for _, a := range accesses {
		if !a.Done {
			continue
		}

		op := "read"
		if a.Write {
			op = "write"
		}

		fmt.Printf("%-5s  0x%08x  0x%016x  %-6s  %d\n",
			op, a.Addr, a.Data, a.Resp, a.Latency())
	}

	fmt.Printf("timeouts: %d, errors: %d\n",
		sys.Connector.NumTimeouts(), sys.Connector.NumErrors())
	s.finish()

	return err
}
