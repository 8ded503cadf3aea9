package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/chojs23/threeway/internal/linediff"
)

var ErrHelp = errors.New("help requested")
var ErrVersion = errors.New("version requested")

func Parse(args []string) (Options, error) {
	var opts Options
	var help bool
	var showVersion bool

	fs := flag.NewFlagSet("threeway", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.BasePath, "base", "", "Path to BASE (ancestor) file")
	fs.StringVar(&opts.LocalPath, "local", "", "Path to LOCAL (ours) file")
	fs.StringVar(&opts.RemotePath, "remote", "", "Path to REMOTE (theirs) file")
	fs.StringVar(&opts.MergedPath, "merged", "", "Path to MERGED file (output target)")
	fs.StringVar(&opts.Apply, "apply", "", "Non-interactive resolution mode")
	fs.BoolVar(&opts.Check, "check", false, "Exit 0 if resolved (no conflict markers), else 1")
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to a TOML or YAML config file")
	fs.StringVar(&opts.Ignore, "ignore", "", "Ignore policy: default|trim|ignore-whitespace")
	fs.BoolVar(&opts.Backup, "backup", false, "Create $MERGED.threeway.bak on write")
	fs.BoolVar(&opts.Verbose, "v", false, "Verbose logging to stderr")
	fs.BoolVar(&help, "help", false, "Show help")
	fs.BoolVar(&help, "h", false, "Show help")
	fs.BoolVar(&showVersion, "version", false, "Show version")

	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		return Options{}, fmt.Errorf("%w\n\n%s", err, Usage())
	}
	if help {
		return Options{}, ErrHelp
	}
	if showVersion {
		return Options{}, ErrVersion
	}

	// Positional mergetool form: <BASE> <LOCAL> <REMOTE> <MERGED>
	if !opts.hasAnyPath() {
		switch {
		case fs.NArg() == 4:
			opts.BasePath = fs.Arg(0)
			opts.LocalPath = fs.Arg(1)
			opts.RemotePath = fs.Arg(2)
			opts.MergedPath = fs.Arg(3)
		case fs.NArg() == 1 && opts.Check:
			opts.MergedPath = fs.Arg(0)
		case fs.NArg() != 0:
			return Options{}, fmt.Errorf("expected 4 positional paths, got %d\n\n%s", fs.NArg(), Usage())
		}
	}

	if opts.Ignore != "" {
		if _, err := linediff.ParsePolicy(opts.Ignore); err != nil {
			return Options{}, err
		}
	}

	opts.Apply = strings.ToLower(strings.TrimSpace(opts.Apply))
	if opts.Apply != "" && !slices.Contains(ApplyModes, opts.Apply) {
		return Options{}, fmt.Errorf("invalid --apply: %q (expected %s)", opts.Apply, strings.Join(ApplyModes, "|"))
	}

	if opts.Check {
		if opts.Apply != "" {
			return Options{}, fmt.Errorf("--check and --apply are mutually exclusive\n\n%s", Usage())
		}
		// Only needs merged.
		if opts.MergedPath == "" {
			return Options{}, fmt.Errorf("--check requires --merged (or a positional path)\n\n%s", Usage())
		}
		return opts, nil
	}

	if opts.Apply != "" {
		if !opts.hasAllPaths() {
			return Options{}, fmt.Errorf("--apply requires base/local/remote/merged\n\n%s", Usage())
		}
		return opts, nil
	}

	// No-arg mode: detect conflicts in current repo and select a file.
	if !opts.hasAnyPath() {
		return opts, nil
	}

	// Interactive mode needs full paths.
	if !opts.hasAllPaths() {
		return Options{}, fmt.Errorf("missing required paths\n\n%s", Usage())
	}

	return opts, nil
}

func Usage() string {
	return strings.TrimSpace(`Usage:
	  threeway
	  threeway <BASE> <LOCAL> <REMOTE> <MERGED>
	  threeway --base <path> --local <path> --remote <path> --merged <path>

Modes:
	  --check                     Exit 0 if $MERGED has no valid conflict blocks, else 1
	  --apply <mode>              Resolve without the UI and write $MERGED; exit 1 if conflicts remain
	      non-conflicting         apply changes made on one side only
	      resolvable              also merge conflicts that merge cleanly word by word
	      ours|theirs|both|none   also settle every remaining conflict that way (none keeps base)

No-args mode:
	  If invoked with no paths and no mode flags, threeway lists
	  conflicted files of the current git repository and prompts to select one.

Options:
	  --config <path>             TOML or YAML config (default: $XDG_CONFIG_HOME/threeway/config.toml)
	  --ignore <policy>           default|trim|ignore-whitespace
	  --backup                    Create $MERGED.threeway.bak
	  --version                   Show version
	  -v                          Verbose logging
`)
}
