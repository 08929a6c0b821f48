package main

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"

	"github.com/busforge/axi/datarecording"
	"github.com/busforge/axi/monitoring"
	"github.com/busforge/axi/platform"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/tracing"
)

// envPrefix is the prefix of the environment variables that provide flag
// defaults, as in AXISIM_MONITOR_PORT for --monitor-port.
const envPrefix = "AXISIM_"

var rootOpts struct {
	envFile      string
	trace        bool
	traceFile    string
	monitor      bool
	monitorPort  int
	openBrowser  bool
	wait         bool
	logTransfers bool
	logStalls    bool
	logEvents    bool
	eventDriven  bool
	parallelIDs  bool
}

var rootCmd = &cobra.Command{
	Use:   "axisim",
	Short: "axisim simulates an AXI transaction engine cycle by cycle.",
	Long: `axisim builds a simulated AXI system and runs a traffic scenario on it. ` +
		`Flag defaults can be given as AXISIM_* environment variables or in a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadEnv(cmd); err != nil {
			return err
		}

		if rootOpts.parallelIDs {
			sim.UseParallelIDGenerator()
		}

		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootOpts.envFile, "env-file", ".env",
		"file to load AXISIM_* variables from")
	f.BoolVar(&rootOpts.trace, "trace", false,
		"record transaction traces into an SQLite file")
	f.StringVar(&rootOpts.traceFile, "trace-file", "",
		"name of the trace file, a unique name is used if empty")
	f.BoolVar(&rootOpts.monitor, "monitor", false,
		"serve the monitoring page while the simulation runs")
	f.IntVar(&rootOpts.monitorPort, "monitor-port", 0,
		"port of the monitoring page, a random port is used if 0")
	f.BoolVar(&rootOpts.openBrowser, "open-browser", false,
		"open the monitoring page in a browser")
	f.BoolVar(&rootOpts.wait, "wait", false,
		"keep the monitor running after the scenario until interrupted")
	f.BoolVar(&rootOpts.logTransfers, "log-transfers", false,
		"log every beat transferred on the buses to stderr")
	f.BoolVar(&rootOpts.logStalls, "log-stalls", false,
		"log every cycle in which nothing moves to stderr")
	f.BoolVar(&rootOpts.eventDriven, "event-driven", false,
		"drive the clock with tick events on a serial engine")
	f.BoolVar(&rootOpts.logEvents, "log-events", false,
		"log every event the engine handles to stderr, implies --event-driven")
	f.BoolVar(&rootOpts.parallelIDs, "parallel-ids", false,
		"use globally unique task IDs instead of sequential ones")

	rootCmd.AddCommand(roundTripCmd, peripheralsCmd)
}

// Execute runs the root command and exits through atexit so that traces are
// flushed.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadEnv reads the env file, if any, and applies AXISIM_* variables to the
// flags that are not set on the command line.
func loadEnv(cmd *cobra.Command) error {
	err := godotenv.Load(rootOpts.envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	var firstErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}

		v, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		firstErr = f.Value.Set(v)
		if firstErr == nil {
			f.Changed = true
		}
	})

	return firstErr
}

func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// session holds the observers shared by the commands.
type session struct {
	id       xid.ID
	recorder datarecording.DataRecorder
	monitor  *monitoring.Monitor
	engine   *sim.SerialEngine
	logger   *log.Logger
}

func newSession() (*session, error) {
	s := &session{id: xid.New()}
	log.Printf("Session %s", s.id)

	if rootOpts.trace {
		recorder, err := datarecording.New(rootOpts.traceFile)
		if err != nil {
			return nil, err
		}

		s.recorder = recorder
	}

	if rootOpts.monitor {
		s.monitor = monitoring.NewMonitor().WithPortNumber(rootOpts.monitorPort)
	}

	if rootOpts.logTransfers || rootOpts.logStalls || rootOpts.logEvents {
		s.logger = log.New(os.Stderr, "", 0)
	}

	if rootOpts.eventDriven || rootOpts.logEvents {
		s.engine = sim.NewSerialEngine()
	}

	if rootOpts.logEvents {
		s.engine.AcceptHook(sim.NewEventLogger(s.logger))
	}

	return s, nil
}

func (s *session) configure(b platform.Builder) platform.Builder {
	if s.engine != nil {
		b = b.WithEngine(s.engine)
	}

	if s.monitor != nil {
		b = b.WithMonitor(s.monitor)
	}

	if rootOpts.logTransfers {
		b = b.WithTransferLog(s.logger)
	}

	if rootOpts.logStalls {
		b = b.WithStallLog(s.logger)
	}

	return b
}

type traceable interface {
	AttachTracer(t tracing.Tracer)
}

// start attaches the tracer and starts the monitor once the system exists.
func (s *session) start(sys traceable, timeTeller sim.TimeTeller) error {
	if s.recorder != nil {
		sys.AttachTracer(tracing.NewDBTracer(timeTeller, s.recorder))
	}

	if s.monitor == nil {
		return nil
	}

	url, err := s.monitor.StartServer()
	if err != nil {
		return err
	}

	if rootOpts.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}

	return nil
}

// finish waits for an interrupt if asked to keep the monitor running.
func (s *session) finish() {
	if s.monitor == nil || !rootOpts.wait {
		return
	}

	log.Print("Scenario finished, press Ctrl-C to exit")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
}

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}
