// Command console-link keeps a link to an Allen & Heath AHM console open and
// relays commands and state between the console and the operator.
//
// On a terminal it starts an interactive shell. Otherwise it reads JSON
// commands from stdin, one per line, and writes every notification to
// stdout as a JSON line.
//
// Usage:
//
//	console-link [flags]
//
// Flags:
//
//	-c, --config string      YAML or TOML configuration file
//	    --console string     Console model: ahm16, ahm32, ahm64 (default "ahm64")
//	-a, --address string     Console IP or host name
//	-p, --port int           Console TCP port (default: model port)
//	-m, --midi-channel int   MIDI base channel 1-16 (default 1)
//	    --log-level string   Log level: debug, info, warn, error (default "info")
//	    --capture string     Write a CBOR protocol capture to this file
//	    --json               Force JSON-lines mode even on a terminal
//	    --models             List console models and exit
//
// Examples:
//
//	# Interactive shell against an AHM-64 on the default port
//	console-link -a 192.168.1.70
//
//	# Headless, driven by another process
//	printf '{"function":"sceneRecall","scene":3}\n' | console-link -a 10.0.0.5 --json
//
//	# Capture traffic for later analysis with console-log
//	console-link -c link.yaml --capture link.cbor --log-level debug
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/consolelink/consolelink-go/cmd/console-link/shell"
	"github.com/consolelink/consolelink-go/pkg/config"
	"github.com/consolelink/consolelink-go/pkg/console"
	"github.com/consolelink/consolelink-go/pkg/link"
	"github.com/consolelink/consolelink-go/pkg/log"
)

var version = "0.1.0"

// options holds the parsed command line.
type options struct {
	configFile  string
	jsonMode    bool
	listModels  bool
	showVersion bool
	showHelp    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "console-link: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin *os.File, stdout, stderr io.Writer) error {
	cfg, opts, err := parseArgs(args, os.LookupEnv, stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	switch {
	case opts.showHelp:
		return nil
	case opts.showVersion:
		fmt.Fprintf(stdout, "console-link %s\n", version)
		return nil
	case opts.listModels:
		return printModels(stdout)
	}

	interactive := !opts.jsonMode && term.IsTerminal(int(stdin.Fd()))

	var sh *shell.Shell
	logOut := stderr
	if interactive {
		sh, err = shell.New()
		if err != nil {
			return err
		}
		logOut = sh.Stderr()
	}

	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	capture, closeCapture, err := openCapture(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCapture()

	lc, err := link.ConfigFrom(cfg)
	if err != nil {
		return err
	}
	lc.Logger = logger
	lc.Capture = capture

	session, err := link.NewSession(lc)
	if err != nil {
		return err
	}
	defer session.Close()

	logger.Info("console link starting",
		"console", lc.Name,
		"addr", lc.Address,
		"midi_channel", cfg.MIDIChannel)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if interactive {
		sh.Attach(session)
		session.Connect()
		go sh.Run(ctx, cancel)
		<-ctx.Done()
		sh.Close()
		return nil
	}

	out := newLineWriter(stdout)
	out.attach(session)
	session.Connect()

	done := make(chan error, 1)
	go func() { done <- runJSONLines(stdin, session, out) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-done:
		return err
	}
}

// parseArgs layers defaults, the config file, the environment and flags.
func parseArgs(args []string, lookup func(string) (string, bool), usageOut io.Writer) (config.Config, options, error) {
	var opts options
	fs := flag.NewFlagSet("console-link", flag.ContinueOnError)
	fs.SetOutput(usageOut)

	var (
		model, address, logLevel, capture string
		port, midiChannel                 int
	)
	fs.StringVarP(&opts.configFile, "config", "c", "", "YAML or TOML configuration file")
	fs.StringVar(&model, "console", console.DefaultModel, "Console model: ahm16, ahm32, ahm64")
	fs.StringVarP(&address, "address", "a", "", "Console IP or host name")
	fs.IntVarP(&port, "port", "p", 0, "Console TCP port (default: model port)")
	fs.IntVarP(&midiChannel, "midi-channel", "m", config.DefaultMIDIChannel, "MIDI base channel 1-16")
	fs.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&capture, "capture", "", "Write a CBOR protocol capture to this file")
	fs.BoolVar(&opts.jsonMode, "json", false, "Force JSON-lines mode even on a terminal")
	fs.BoolVar(&opts.listModels, "models", false, "List console models and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&opts.showHelp, "help", "h", false, "Show this help")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, opts, err
	}
	if opts.showHelp {
		fmt.Fprintln(usageOut, "Usage: console-link [flags]")
		fs.PrintDefaults()
		return config.Config{}, opts, nil
	}
	if opts.showVersion || opts.listModels {
		return config.Config{}, opts, nil
	}

	cfg := config.Default()
	if opts.configFile != "" {
		loaded, err := config.Load(opts.configFile)
		if err != nil {
			return cfg, opts, err
		}
		cfg = loaded
	}
	if err := config.LoadFromLookup(&cfg, lookup); err != nil {
		return cfg, opts, err
	}

	if fs.Changed("console") {
		cfg.Console = model
	}
	if fs.Changed("address") {
		cfg.Address = address
	}
	if fs.Changed("port") {
		cfg.Port = port
	}
	if fs.Changed("midi-channel") {
		cfg.MIDIChannel = midiChannel
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if fs.Changed("capture") {
		cfg.CaptureFile = capture
	}

	if err := cfg.Validate(); err != nil {
		return cfg, opts, err
	}
	return cfg, opts, nil
}

// openCapture builds the capture logger: the CBOR file when configured, and
// the slog adapter at debug level.
func openCapture(cfg config.Config, logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeFn := func() {}

	if cfg.CaptureFile != "" {
		fl, err := log.NewFileLogger(cfg.CaptureFile)
		if err != nil {
			return nil, closeFn, err
		}
		loggers = append(loggers, fl)
		closeFn = func() {
			if err := fl.Close(); err != nil {
				logger.Warn("closing capture file", "path", fl.Path(), "error", err)
			}
			logger.Info("capture written", "path", fl.Path(), "events", fl.Count())
		}
	}
	if cfg.SlogLevel() <= slog.LevelDebug {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	multi := log.NewMultiLogger(loggers...)
	if multi.Len() == 0 {
		return log.NoopLogger{}, closeFn, nil
	}
	return multi, closeFn, nil
}

func printModels(w io.Writer) error {
	names, err := console.Models()
	if err != nil {
		return err
	}
	for _, name := range names {
		m, err := console.LoadModel(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-8s %-40s inputs=%d zones=%d control-groups=%d port=%d\n",
			m.Name, m.Description, m.Layout.Inputs, m.Layout.Zones, m.Layout.ControlGroups, m.Port)
	}
	return nil
}
