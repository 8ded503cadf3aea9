package cli

// Options is the fully-parsed configuration for a single invocation.
//
// It supports both:
// - mergetool-style positional args: <BASE> <LOCAL> <REMOTE> <MERGED>
// - standalone flags: --base/--local/--remote/--merged
type Options struct {
	BasePath   string
	LocalPath  string
	RemotePath string
	MergedPath string

	// Apply selects a headless resolution mode (see ApplyModes).
	Apply string
	Check bool

	ConfigPath string
	// Ignore overrides the ignore policy of the config file when set.
	Ignore string

	Backup  bool
	Verbose bool
}

const (
	ApplyNonConflicting = "non-conflicting"
	ApplyResolvable     = "resolvable"
	ApplyOurs           = "ours"
	ApplyTheirs         = "theirs"
	ApplyBoth           = "both"
	ApplyNone           = "none"
)

// ApplyModes lists the values accepted by --apply.
var ApplyModes = []string{
	ApplyNonConflicting,
	ApplyResolvable,
	ApplyOurs,
	ApplyTheirs,
	ApplyBoth,
	ApplyNone,
}

func (o Options) hasAnyPath() bool {
	return o.BasePath != "" || o.LocalPath != "" || o.RemotePath != "" || o.MergedPath != ""
}

func (o Options) hasAllPaths() bool {
	return o.BasePath != "" && o.LocalPath != "" && o.RemotePath != "" && o.MergedPath != ""
}
