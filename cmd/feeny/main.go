// Feeny CLI - links and runs compiled Feeny bytecode programs
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/feeny/manifest"
	"github.com/chazu/feeny/vm"
)

var log = commonlog.GetLogger("feeny")

// flags shared by every command
type globalFlags struct {
	configPath string
	verbose    int
	logFile    string
	heap       int
	trace      bool
	stats      bool
	gcAtExit   bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "feeny: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	gf := &globalFlags{}
	root := &cobra.Command{
		Use:   "feeny <program>",
		Short: "Run compiled Feeny programs",
		Long: `feeny links a compiled Feeny bytecode file (or a linked .fimg image)
and runs it. Program output goes to stdout; diagnostics go to the log.

Examples:
  feeny prog.bc                  # link and run
  feeny dis prog.bc --linked     # show the linked code
  feeny link prog.bc -o prog.fimg
  feeny run prog.fimg --heap 4096 --stats`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(cmd, gf, args[0])
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&gf.configPath, "config", "", "path to feeny.toml (default: search upward from the working directory)")
	pf.CountVarP(&gf.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	pf.StringVar(&gf.logFile, "log-file", "", "write the log to this file instead of stderr")
	pf.IntVar(&gf.heap, "heap", 0, "semispace size in bytes")
	pf.BoolVar(&gf.trace, "trace", false, "log every executed instruction at debug level")
	pf.BoolVar(&gf.stats, "stats", false, "log collector and slot cache statistics at exit")
	pf.BoolVar(&gf.gcAtExit, "gc-at-exit", false, "run a final collection before reporting statistics")

	root.AddCommand(
		newRunCommand(gf),
		newDisCommand(gf),
		newLinkCommand(gf),
	)
	return root
}

// loadConfig resolves feeny.toml, applies command-line overrides and
// configures logging.
func loadConfig(cmd *cobra.Command, gf *globalFlags) (*manifest.Config, error) {
	var (
		cfg *manifest.Config
		err error
	)
	if gf.configPath != "" {
		cfg, err = manifest.LoadFile(gf.configPath)
	} else {
		var wd string
		if wd, err = os.Getwd(); err == nil {
			cfg, err = manifest.FindAndLoad(wd)
		}
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("heap") {
		cfg.Heap.SemispaceBytes = gf.heap
	}
	if flags.Changed("trace") {
		cfg.Runtime.Trace = gf.trace
	}
	if flags.Changed("stats") {
		cfg.Runtime.Stats = gf.stats
	}
	if flags.Changed("log-file") {
		cfg.Log.File = gf.logFile
	}
	cfg.Log.Verbosity += gf.verbose
	if cfg.Runtime.Trace && cfg.Log.Verbosity < 2 {
		cfg.Log.Verbosity = 2
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	commonlog.Configure(cfg.Log.Verbosity, cfg.LogPath())
	if cfg.Path != "" {
		log.Debugf("configuration from %s", cfg.Path)
	}
	return cfg, nil
}

func runProgram(cmd *cobra.Command, gf *globalFlags, path string) error {
	cfg, err := loadConfig(cmd, gf)
	if err != nil {
		return err
	}
	img, err := loadImage(path)
	if err != nil {
		return err
	}

	opts := cfg.VMOptions()
	opts.Output = cmd.OutOrStdout()
	machine, err := vm.New(img, opts)
	if err != nil {
		return err
	}

	runErr := machine.Run()
	if gf.gcAtExit {
		machine.Collect()
	}
	if cfg.Runtime.Stats {
		s := machine.Stats()
		log.Noticef("[%s] %d collections, %d allocations (%d bytes), %d bytes in use of %d, last collection copied %d bytes, slot cache %d hits / %d misses",
			machine.RunID(), s.Collections, s.Allocations, s.BytesAllocated, s.BytesInUse, s.SemispaceBytes,
			s.LastCopiedBytes, s.SlotCacheHits, s.SlotCacheMisses)
	}
	return runErr
}
