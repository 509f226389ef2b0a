// Command zabbixdash serves the dashboard API and queries Zabbix from the
// command line using the same persisted session.
package main

//	@title			zabbixdash API
//	@version		0.1.0
//	@description	Session and data API for the Zabbix dashboard.
//	@BasePath		/api/v1

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	_ "github.com/HerbHall/zabbixdash/api/swagger"
	"github.com/HerbHall/zabbixdash/internal/version"
)

// command runs one subcommand. Results go to stdout; logs go to stderr.
type command struct {
	summary string
	run     func(ctx context.Context, args []string, stdout io.Writer) error
}

var commands = map[string]command{
	"serve":    {"run the HTTP API", runServe},
	"login":    {"log in to a Zabbix server and persist the session", runLogin},
	"logout":   {"clear the persisted session", runLogout},
	"status":   {"show the current session", runStatus},
	"hosts":    {"list hosts", runHosts},
	"groups":   {"list host groups", runGroups},
	"triggers": {"list recent triggers", runTriggers},
	"problems": {"list problems", runProblems},
	"items":    {"list items of a host", runItems},
	"history":  {"show item history", runHistory},
	"call":     {"invoke any API method with JSON params", runCall},
	"overview": {"show dashboard summary statistics", runOverview},
	"token":    {"issue an API bearer token", runToken},
	"ping":     {"ping the interfaces Zabbix lists for a host", runPing},
}

// errUsage marks bad invocations; the flag package has already printed why.
var errUsage = errors.New("usage")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "zabbixdash: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return errUsage
	}

	name, rest := args[0], args[1:]
	switch name {
	case "version", "-version", "--version":
		_, err := fmt.Fprintln(stdout, version.Info())
		return err
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage(os.Stderr)
		return errUsage
	}
	if err := cmd.run(ctx, rest, stdout); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return errUsage
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: zabbixdash <command> [flags]\n\nCommands:\n")
	names := make([]string, 0, len(commands)+1)
	for name := range commands {
		names = append(names, name)
	}
	names = append(names, "version")
	sort.Strings(names)
	for _, name := range names {
		summary := "print version information"
		if c, ok := commands[name]; ok {
			summary = c.summary
		}
		fmt.Fprintf(w, "  %-9s %s\n", name, summary)
	}
	fmt.Fprintf(w, "\nRun 'zabbixdash <command> -h' for command flags.\n")
}
