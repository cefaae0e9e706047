// Command console-emu emulates an Allen & Heath AHM console on MIDI over TCP.
//
// It keeps mute, fader, send and scene state for the chosen model, answers
// get-mute and get-level queries from that state and mirrors every change a
// host makes to the other connected hosts. Point console-link at it to try a
// link without hardware.
//
// Usage:
//
//	console-emu [flags]
//
// Flags:
//
//	-l, --listen string      Listen address (default: all interfaces, model port)
//	    --console string     Console model: ahm16, ahm32, ahm64 (default "ahm64")
//	-m, --midi-channel int   MIDI base channel 1-16 (default 1)
//	    --log-level string   Log level: debug, info, warn, error (default "info")
//	    --capture string     Write a CBOR protocol capture to this file
//
// Examples:
//
//	# Emulate an AHM-16 and connect to it
//	console-emu --console ahm16 -l 127.0.0.1:51325 &
//	console-link --console ahm16 -a 127.0.0.1
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/consolelink/consolelink-go/pkg/config"
	"github.com/consolelink/consolelink-go/pkg/console"
	"github.com/consolelink/consolelink-go/pkg/log"
)

// options holds the parsed command line.
type options struct {
	listen string
	cfg    config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "console-emu: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: opts.cfg.SlogLevel()}))

	capture, closeCapture, err := openCapture(opts.cfg.CaptureFile, logger)
	if err != nil {
		return err
	}
	defer closeCapture()

	ch, err := opts.cfg.Channel()
	if err != nil {
		return err
	}
	emu, err := newEmulator(emulatorConfig{
		Address: opts.listen,
		Model:   opts.cfg.Console,
		Channel: ch,
		Logger:  logger,
		Capture: capture,
	})
	if err != nil {
		return err
	}
	if err := emu.Start(ctx); err != nil {
		return err
	}
	logger.Info("console emulator listening",
		"addr", emu.Addr().String(),
		"console", opts.cfg.Console,
		"midi_channel", opts.cfg.MIDIChannel)

	<-ctx.Done()
	return emu.Stop()
}

func parseArgs(args []string, usageOut io.Writer) (options, error) {
	opts := options{cfg: config.Default()}
	fs := flag.NewFlagSet("console-emu", flag.ContinueOnError)
	fs.SetOutput(usageOut)

	fs.StringVarP(&opts.listen, "listen", "l", "", "Listen address (default: all interfaces, model port)")
	fs.StringVar(&opts.cfg.Console, "console", console.DefaultModel, "Console model: ahm16, ahm32, ahm64")
	fs.IntVarP(&opts.cfg.MIDIChannel, "midi-channel", "m", config.DefaultMIDIChannel, "MIDI base channel 1-16")
	fs.StringVar(&opts.cfg.LogLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&opts.cfg.CaptureFile, "capture", "", "Write a CBOR protocol capture to this file")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if err := opts.cfg.Validate(); err != nil {
		return opts, err
	}
	if opts.listen == "" {
		opts.listen = net.JoinHostPort("", strconv.Itoa(opts.cfg.ResolvedPort()))
	}
	return opts, nil
}

// openCapture opens the CBOR capture file when one is configured.
func openCapture(path string, logger *slog.Logger) (log.Logger, func(), error) {
	if path == "" {
		return log.NoopLogger{}, func() {}, nil
	}
	fl, err := log.NewFileLogger(path)
	if err != nil {
		return nil, func() {}, err
	}
	return fl, func() {
		if err := fl.Close(); err != nil {
			logger.Warn("closing capture file", "path", fl.Path(), "error", err)
		}
		logger.Info("capture written", "path", fl.Path(), "events", fl.Count())
	}, nil
}
