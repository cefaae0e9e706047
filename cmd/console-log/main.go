// Command console-log is a tool for viewing and analyzing console-link
// capture files.
//
// Capture files are written by console-link with the --capture flag.
//
// Usage:
//
//	console-log <command> [flags] <file.cbor>
//
// Commands:
//
//	view     View capture file in human-readable format
//	export   Export capture file to JSONL, CSV or YAML
//	filter   Filter capture file and write to new file
//	stats    Show statistics about the capture file
//
// Examples:
//
//	# View all events
//	console-log view link.cbor
//
//	# View only raw socket traffic from the console
//	console-log view --layer transport --direction in link.cbor
//
//	# View only scene recalls
//	console-log view --function sceneRecall link.cbor
//
//	# Export to JSONL
//	console-log export --format jsonl link.cbor
//
//	# Keep one connection attempt
//	console-log filter --conn-id 1f0c9a2e-... -o one.cbor link.cbor
//
//	# Show statistics
//	console-log stats link.cbor
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"github.com/consolelink/consolelink-go/cmd/console-log/commands"
)

const usage = `console-log - Console Link Capture Analyzer

Usage:
  console-log <command> [flags] <file.cbor>

Commands:
  view     View capture file in human-readable format
  export   Export capture file to JSONL, CSV or YAML
  filter   Filter capture file and write to new file
  stats    Show statistics about the capture file

Use "console-log <command> --help" for more information about a command.
`

// errUsage marks errors after which the usage text has already been shown.
var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "view":
		return runView(rest, stdout, stderr)
	case "export":
		return runExport(rest, stdout, stderr)
	case "filter":
		return runFilter(rest, stdout, stderr)
	case "stats":
		return runStats(rest, stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(stderr, usage)
		return errUsage
	}
}

// newFlagSet creates a subcommand flag set whose usage lists its flags.
func newFlagSet(name, summary, synopsis string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "console-log %s - %s\n\nUsage:\n  %s\n\nFlags:\n", name, summary, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// parsePath parses flags and returns the single capture file argument.
func parsePath(fs *flag.FlagSet, args []string, stderr io.Writer) (string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", errUsage
		}
		return "", err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: capture file path required")
		fs.Usage()
		return "", errUsage
	}
	return fs.Arg(0), nil
}

func runView(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("view", "View capture file in human-readable format",
		"console-log view [flags] <file.cbor>", stderr)

	layer := fs.StringP("layer", "l", "", "Filter by layer (transport, codec, session)")
	direction := fs.StringP("direction", "d", "", "Filter by direction (in, out)")
	category := fs.StringP("category", "c", "", "Filter by category (message, control, state, error)")
	function := fs.StringP("function", "f", "", "Filter codec events by function (sceneRecall, muteControl, ...)")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	path, err := parsePath(fs, args, stderr)
	if err != nil {
		return err
	}
	if *noColor {
		color.NoColor = true
	}

	filter := commands.ViewFilter{Function: *function}

	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			return err
		}
		filter.Layer = &l
	}

	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			return err
		}
		filter.Direction = &d
	}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			return err
		}
		filter.Category = &c
	}

	return commands.RunView(path, filter, stdout)
}

func runExport(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("export", "Export capture file to JSONL, CSV or YAML",
		"console-log export [flags] <file.cbor>", stderr)

	format := fs.String("format", "jsonl", "Output format (jsonl, csv, yaml)")
	output := fs.StringP("output", "o", "", "Output file (default: stdout)")

	path, err := parsePath(fs, args, stderr)
	if err != nil {
		return err
	}

	if *output == "" {
		return commands.Export(path, *format, stdout)
	}
	return commands.RunExport(path, *format, *output)
}

func runFilter(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("filter", "Filter capture file and write to new file",
		"console-log filter [flags] <file.cbor>", stderr)

	var opts commands.FilterOptions
	fs.StringVarP(&opts.Output, "output", "o", "", "Output file (required)")
	fs.StringVar(&opts.ConnID, "conn-id", "", "Filter by connection ID")
	fs.StringVarP(&opts.Function, "function", "f", "", "Filter codec events by function")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVarP(&opts.Layer, "layer", "l", "", "Filter by layer (transport, codec, session)")
	fs.StringVarP(&opts.Direction, "direction", "d", "", "Filter by direction (in, out)")
	fs.StringVarP(&opts.Category, "category", "c", "", "Filter by category (message, control, state, error)")

	path, err := parsePath(fs, args, stderr)
	if err != nil {
		return err
	}

	if opts.Output == "" {
		fmt.Fprintln(stderr, "Error: output file (-o) required")
		fs.Usage()
		return errUsage
	}

	return commands.RunFilter(path, opts, stdout)
}

func runStats(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("stats", "Show statistics about the capture file",
		"console-log stats <file.cbor>", stderr)

	path, err := parsePath(fs, args, stderr)
	if err != nil {
		return err
	}

	return commands.RunStats(path, stdout)
}
