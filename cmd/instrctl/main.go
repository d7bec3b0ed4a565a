// instrctl assembles instrument command frames from a persisted command
// catalog and sends them, either one-shot from the terminal or through the
// operator HTTP API.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const app = "instrctl"

// errReported marks failures already shown to the operator.
var errReported = errors.New("reported")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", app, err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return fmt.Errorf("missing command")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return runList(rest, stdout)
	case "encode":
		return runEncode(rest, stdout)
	case "send":
		return runSend(rest, stdout, stderr)
	case "defaults":
		return runDefaults(rest, stdout)
	case "serve":
		return runServe(rest, stdout)
	case "configgen":
		return runConfigGen(rest, stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `usage: %s <command> [flags]

commands:
  list                          show the command catalog
  encode <index|0xCODE> [--content H] [--out PATH]
                                print (and optionally write) the frame for a catalog entry
  send <index|0xCODE> [--content H]
                                encode and transmit a catalog entry
  defaults [--out PATH]         write the built-in catalog to a store file
  serve                         run the operator HTTP API
  configgen [--output PATH]     write or validate a station config

global flags:
  --config PATH                 station config (TOML)
`, app)
}
