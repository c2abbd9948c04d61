// Command feedlog records baby feedings from the terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/and161185/feedlog/internal/config"
	"github.com/and161185/feedlog/internal/errs"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

var errUsage = errors.New("usage")

const usageText = `feedlog CLI
Usage:
  feedlog [-backend file|sqlite|postgres|redis|memory] [-dir DIR] [-dsn DSN]
          [-redis-addr HOST:PORT] [-passphrase P] [-log-level L] <cmd> [args]

Commands:
  version
  signup               -email <e> -password <p> -confirm <p> [-name <n>]
  login                -email <e> -password <p>
  logout
  whoami
  account              [-name <n>] [-email <e>]
  children
  child-add            -name <n> -dob YYYY-MM-DD
  child-edit           -id <child> [-name <n>] [-dob YYYY-MM-DD]
  child-invite         -id <child> -email <e>
  child-remove-parent  -id <child> -parent <user>
  select               -id <child>
  back
  feed-add             -type bottle|breast [-date D] [-time HH:MM] [-ml N]
                       [-left N] [-right N] [-notes s] [-spit-up] [-peed] [-pooped]
  feed-edit            -id <entry> [same flags as feed-add]
  feed-rm              -id <entry>
  feeds                [-type all|bottle|breast] [-json]
`

// main runs one command and maps errors to exit codes.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fail(err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("feedlog", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usageText) }

	cfg, err := config.Parse(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errUsage
		}
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return errUsage
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	if cmd == "version" {
		fmt.Fprintf(stdout, "feedlog %s (%s)\n", version, buildDate)
		return nil
	}
	h, ok := commands[cmd]
	if !ok {
		fs.Usage()
		return errUsage
	}

	log, err := cfg.NewLogger(stderr)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	a, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	cmdErr := h(a, cmd, rest, stdout)
	if err := a.close(ctx); err != nil {
		return errors.Join(cmdErr, err)
	}
	return cmdErr
}

// ---- helpers ----

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	switch {
	case errors.Is(err, errUsage):
		os.Exit(2)
	case errors.Is(err, errs.ErrNoSession):
		fmt.Fprintf(os.Stderr, "%v (run `feedlog login` or `feedlog select` first)\n", err)
	default:
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
