// ovinfo inspects the builtin operator dispatcher.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/chazu/opdispatch/builtin"
	"github.com/chazu/opdispatch/config"
	"github.com/chazu/opdispatch/value"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("opdispatch.ovinfo")

func main() {
	configDir := flag.String("config", "", "Directory containing opdispatch.toml (default: search upwards from the working directory)")
	verbose := flag.Bool("v", false, "Verbose output")
	statsDB := flag.String("stats", "", "SQLite database to record dispatch statistics into")
	output := flag.String("o", "", "Output file for dump")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ovinfo [options] <command> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  types                      List installed types in registration order\n")
		fmt.Fprintf(os.Stderr, "  probe <op> <type> [type]   Dispatch op on type prototypes\n")
		fmt.Fprintf(os.Stderr, "  grid <op>                  Probe a binary op on every pair of types\n")
		fmt.Fprintf(os.Stderr, "  dump                       Write the canonical CBOR dump (-o) or print its fingerprint\n")
		fmt.Fprintf(os.Stderr, "  diff <a.cbor> <b.cbor>     Compare two dumps\n")
		fmt.Fprintf(os.Stderr, "  stats [session]            Show recorded statistics (-stats)\n")
		fmt.Fprintf(os.Stderr, "  config                     Print the effective configuration\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ovinfo probe + bool scalar\n")
		fmt.Fprintf(os.Stderr, "  ovinfo -stats probes.db grid '*'\n")
		fmt.Fprintf(os.Stderr, "  ovinfo -o types.cbor dump\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	verbosity := cfg.Log.Verbosity
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, cfg.LogPath())

	opts := cfg.DispatcherOptions()
	if *statsDB != "" {
		opts.Stats = true
	}
	d := value.NewDispatcher(opts)
	builtin.Install(d, cfg.Policy())
	log.Debugf("dispatcher %s: %d types installed", d.ID(), d.NumTypes())

	in := value.NewInterrupter(nil)
	in.EscalateAfter(cfg.Interrupt.EscalateAfter)
	in.OnEscalate(func(n int) {
		fmt.Fprintf(os.Stderr, "\n%d interrupts, exiting\n", n)
		os.Exit(130)
	})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		for range sig {
			in.Signal()
		}
	}()

	e := &env{
		d:       d,
		ctx:     in.Context(),
		out:     os.Stdout,
		statsDB: *statsDB,
		output:  *output,
	}

	switch args[0] {
	case "types":
		err = e.listTypes()
	case "probe":
		err = e.probe(args[1:])
	case "grid":
		err = e.grid(args[1:])
	case "dump":
		err = e.dump()
	case "diff":
		err = e.diff(args[1:])
	case "stats":
		err = e.showStats(args[1:])
	case "config":
		err = cfg.Encode(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if err == nil {
		err = e.recordStats()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads opdispatch.toml from dir, or searches upwards from the
// working directory when dir is empty. No file means defaults.
func loadConfig(dir string) (*config.Config, error) {
	if dir != "" {
		return config.Load(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}
