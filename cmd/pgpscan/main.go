package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"example.com/pgpscan/pkg/config"
	"example.com/pgpscan/pkg/pgp"
	"example.com/pgpscan/pkg/trace"
	"example.com/pgpscan/pkg/util/perm"
)

type scanOptions struct {
	configPath string
	logLevel   string
	outPath    string
	noHex      bool
	locked     bool
}

func fatalIf(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	fatalIf(newScanCommand().Execute())
}

func newScanCommand() *cobra.Command {
	var opts scanOptions
	var flags *pflag.FlagSet

	cmd := &cobra.Command{
		Use:           "pgpscan [OPTIONS] PATH",
		Short:         "Dump the packet structure of an OpenPGP file",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, err := loadConfig(&opts, flags)
			if err != nil {
				return err
			}
			return runScan(cmd, cfg, opts.outPath, args[0])
		},
	}

	flags = cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Configuration file (default: $"+config.EnvVar+")")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (trace/debug/info/warn/error)")
	flags.StringVar(&opts.outPath, "out", "", "Write the dump to a file instead of stdout")
	flags.BoolVar(&opts.noHex, "no-hex", false, "Leave hex blocks out of the dump")
	flags.BoolVar(&opts.locked, "locked", false, "Stage packet bodies in locked memory")
	return cmd
}

// loadConfig reads the configuration file and lets explicitly set flags
// override it.
func loadConfig(opts *scanOptions, flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("no-hex") {
		cfg.Trace.Hex = !opts.noHex
	}
	if flags.Changed("locked") {
		cfg.Memory.LockedStaging = opts.locked
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runScan(cmd *cobra.Command, cfg *config.Config, outPath, path string) error {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(cfg.LogLevel())
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log := logger.WithField("file", path)

	out, closeOut, err := openOut(cmd.OutOrStdout(), outPath)
	if err != nil {
		return err
	}
	defer closeOut()

	w := trace.NewWriter(out, log)
	if !cfg.Trace.Hex {
		w.DisableHex()
	}
	pkts, err := pgp.DecodeFile(path, cfg.Decoder(w, log))
	log.WithFields(logrus.Fields{
		"packets": len(pkts),
		"flagged": countFlagged(pkts),
	}).Info("scan finished")
	if err != nil {
		return err
	}
	return w.Err()
}

func countFlagged(pkts []*pgp.Packet) int {
	n := 0
	for _, p := range pkts {
		if p.Err != nil {
			n++
		}
	}
	return n
}

func openOut(stdout io.Writer, outPath string) (io.Writer, func(), error) {
	if outPath == "" {
		return stdout, func() {}, nil
	}
	f, err := perm.Create(outPath)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
