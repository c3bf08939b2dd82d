// Command tenderbell keeps a notification session for one marketplace
// identity and renders it in the terminal or serves it on loopback HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cmd := "run"
	if len(args) > 0 {
		switch first := args[0]; {
		case first == "--version" || first == "-v":
			cmd = "version"
		case first == "--help" || first == "-h":
			cmd = "help"
		case first != "" && first[0] != '-':
			cmd, args = first, args[1:]
		}
	}

	switch cmd {
	case "version":
		fmt.Fprintln(out, "tenderbell "+version)
		return nil
	case "help":
		printHelp(out)
		return nil
	case "status":
		return runStatus(context.Background(), args, out)
	case "run":
		fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
		withTUI := fs.Bool("tui", false, "render the terminal UI")
		if helped, err := parseFlags(fs, args, out); helped || err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runDaemon(cfg, *withTUI)
	default:
		printHelp(out)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// parseFlags parses args into fs. It reports helped when -h/--help printed
// the flag usage, which is not an error.
func parseFlags(fs *pflag.FlagSet, args []string, out io.Writer) (helped bool, err error) {
	fs.SetOutput(out)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func printHelp(out io.Writer) {
	fmt.Fprint(out, `tenderbell - real-time tender marketplace notifications

Usage:
  tenderbell [run] [--tui]   start the session (default)
  tenderbell status          show the status of a running daemon
  tenderbell version         print the version

Configuration is read from TENDERBELL_* environment variables and .env.
`)
}
