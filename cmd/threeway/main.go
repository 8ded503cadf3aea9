package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"

	"github.com/golang/glog"

	"github.com/chojs23/threeway/internal/cli"
	"github.com/chojs23/threeway/internal/run"
)

var version = "dev"

func main() {
	opts, err := cli.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			fmt.Fprintln(os.Stdout, cli.Usage())
			os.Exit(0)
		}
		if errors.Is(err, cli.ErrVersion) {
			fmt.Fprintf(os.Stdout, "threeway %s\n", versionString())
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(run.ExitError)
	}

	if err := setupLogging(opts.Verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(run.ExitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	exitCode := run.Run(ctx, opts)
	stop()
	glog.Flush()
	os.Exit(exitCode)
}

// setupLogging configures glog through its flags on the default flag set.
// Without -v only warnings and errors reach stderr.
func setupLogging(verbose bool) error {
	if err := flag.CommandLine.Parse(nil); err != nil {
		return err
	}
	settings := map[string]string{"stderrthreshold": "WARNING", "logtostderr": "false"}
	if verbose {
		settings = map[string]string{"logtostderr": "true", "v": "1"}
	}
	for name, value := range settings {
		if err := flag.Set(name, value); err != nil {
			return fmt.Errorf("configure logging: %w", err)
		}
	}
	return nil
}

func versionString() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	if info.Main.Version == "" || info.Main.Version == "(devel)" {
		return version
	}
	return info.Main.Version
}
