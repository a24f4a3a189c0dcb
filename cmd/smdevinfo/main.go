package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/t9t/gosmdev/config"
	"github.com/t9t/gosmdev/devfile"
	"github.com/t9t/gosmdev/device"
)

const (
	exitCodeUserError int = iota + 2
	exitCodeFunctionalError
	exitCodeTechnicalError
)

// exitError carries the exit code for an error returned by a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func functional(err error) error {
	return &exitError{code: exitCodeFunctionalError, err: err}
}

func technical(err error) error {
	return &exitError{code: exitCodeTechnicalError, err: err}
}

// options holds the global flags.
type options struct {
	configFile  string
	verbosity   int
	logFormat   string
	retries     uint8
	granularity string
	zeroOnError bool

	deviceConfig device.Config
	log          logr.Logger
}

func main() {
	opts := &options{}
	root := &cobra.Command{
		Use:   "smdevinfo",
		Short: "Storage media device information and imaging",
		Long: "Show information about a storage media device, such as a hard disk or an optical disc, and copy its " +
			"contents to an image file, filling unreadable data with zeroes.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "configuration file")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "verbose; print details about what's going on, repeat for more")
	flags.StringVar(&opts.logFormat, "log-format", config.LogFormatText, "log format: text|json")
	flags.Uint8Var(&opts.retries, "retries", device.DefaultConfig().ErrorRetries,
		"number of times a failed read is retried")
	flags.StringVar(&opts.granularity, "granularity", "", "size a read error applies to (e.g. 512, 2k), empty for the "+
		"whole read")
	flags.BoolVar(&opts.zeroOnError, "zero-on-error", false, "zero the entire granularity unit on a read error")

	root.AddCommand(newInfoCommand(opts))
	root.AddCommand(newTOCCommand(opts))
	root.AddCommand(newImageCommand(opts))
	root.AddCommand(newExtractCommand(opts))

	if err := root.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitCodeUserError)
	}
}

// resolve combines the configuration file with the flags that were set on the command line.
func (o *options) resolve(cmd *cobra.Command) error {
	cfg := config.Default()
	if o.configFile != "" {
		var err error
		if cfg, err = config.ReadFile(o.configFile); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("retries") {
		cfg.Device.ErrorRetries = int(o.retries)
	}
	if flags.Changed("granularity") {
		cfg.Device.ErrorGranularity = o.granularity
	}
	if flags.Changed("zero-on-error") {
		cfg.Device.ZeroOnError = o.zeroOnError
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}

	deviceConfig, err := cfg.DeviceConfig()
	if err != nil {
		return err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	if o.verbosity > 0 {
		level = slog.LevelInfo - slog.Level(o.verbosity)
	}

	o.deviceConfig = deviceConfig
	o.log = newLogger(cfg.Log.Format, level)
	return nil
}

// newLogger returns a logger writing to stderr. logr verbosity V(n) is logged at slog level -n.
func newLogger(format string, level slog.Level) logr.Logger {
	logLevel := new(slog.LevelVar)
	logLevel.Set(level)
	handlerOptions := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	switch format {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stderr, handlerOptions)
	default:
		handler = slog.NewTextHandler(os.Stderr, handlerOptions)
	}
	return logr.FromSlogHandler(handler).WithName(filepath.Base(os.Args[0]))
}

// openDevice opens the device at path for reading.
func (o *options) openDevice(path string) (*device.Handle, error) {
	f, err := devfile.Open(path, false)
	if err != nil {
		return nil, technical(err)
	}
	h := device.New(device.WithConfig(o.deviceConfig), device.WithLogger(o.log.WithValues("device", path)))
	if err := h.Open(f); err != nil {
		f.Close()
		return nil, technical(errors.Wrapf(err, "unable to open device %s", path))
	}
	o.log.V(1).Info("Opened device", "path", path, "retries", o.deviceConfig.ErrorRetries,
		"granularity", o.deviceConfig.ErrorGranularity)
	return h, nil
}

func openOutputFile(outfile string, overwrite bool) (*os.File, error) {
	if overwrite {
		return os.Create(outfile)
	}
	return os.OpenFile(outfile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
}

func formatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%dB", b)
	}
	if b < 1048576 {
		return fmt.Sprintf("%.2fKiB", float32(b)/float32(1024))
	}
	if b < 1073741824 {
		return fmt.Sprintf("%.2fMiB", float32(b)/float32(1048576))
	}
	return fmt.Sprintf("%.2fGiB", float32(b)/float32(1073741824))
}
