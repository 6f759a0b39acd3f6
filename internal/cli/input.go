package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
)

const (
	ExitSuccess           = 0
	ExitGenerationFailure = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
	ExitScanFailure       = 5
	ExitManifestFailure   = 6
)

// Version is stamped at build time with -ldflags "-X shadergen/internal/cli.Version=...".
var Version = "dev"

type ReportConfig struct {
	Enabled bool
	Path    string
}

// Invocation is the canonicalized description of a run.
//
// Paths are home-expanded and cleaned. Fields that may also come from the
// config file carry a *Set flag so that only explicit flags override it.
type Invocation struct {
	Root         string
	OriginalRoot string
	ConfigPath   string

	Jobs    int
	JobsSet bool
	Strict  bool
	Check   bool
	Report  ReportConfig

	Verbose bool
	Quiet   bool
	NoColor bool

	Help    bool
	Version bool
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

type invocationFlags struct {
	config  string
	jobs    int
	check   bool
	strict  bool
	report  string
	verbose bool
	quiet   bool
	noColor bool
	version bool
}

func newFlagSet(f *invocationFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("shadergen", pflag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed
	fs.SortFlags = false

	fs.StringVar(&f.config, "config", "", "config file (.toml, .yaml or .yml)")
	fs.IntVarP(&f.jobs, "jobs", "j", 1, "number of programs emitted in parallel")
	fs.BoolVar(&f.check, "check", false, "write nothing; fail if any output is missing or out of date")
	fs.BoolVar(&f.strict, "strict", false, "fail if any program or directory is skipped")
	fs.StringVar(&f.report, "report", "", "write a JSON generation trace to this file")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug output")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "warnings and errors only")
	fs.BoolVar(&f.noColor, "no-color", false, "disable coloured output")
	fs.BoolVar(&f.version, "version", false, "print the version and exit")
	return fs
}

// Usage returns the help text.
func Usage() string {
	var b strings.Builder
	b.WriteString("Usage: shadergen [flags] <root>\n\n")
	b.WriteString("Embeds the shader stages found under <root> into one generated.h per\n")
	b.WriteString("program directory and writes <root>/Shaders.h including them all.\n\n")
	b.WriteString("Flags:\n")
	b.WriteString(newFlagSet(&invocationFlags{}).FlagUsages())
	return b.String()
}

// ParseInvocation parses CLI arguments (excluding argv[0]) into a canonical
// Invocation. Errors are *InvocationError.
func ParseInvocation(args []string) (Invocation, error) {
	var f invocationFlags
	fs := newFlagSet(&f)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return Invocation{Help: true}, nil
		}
		return Invocation{}, invalidInvocationf("%v", err)
	}
	if f.version {
		return Invocation{Version: true}, nil
	}

	switch fs.NArg() {
	case 0:
		return Invocation{}, invalidInvocationf("missing <root> argument")
	case 1:
	default:
		return Invocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args()[1:], " "))
	}

	root, err := resolvePath("root", fs.Arg(0))
	if err != nil {
		return Invocation{}, err
	}
	if f.jobs < 1 {
		return Invocation{}, invalidInvocationf("--jobs must be at least 1 (got %d)", f.jobs)
	}

	inv := Invocation{
		Root:         root,
		OriginalRoot: fs.Arg(0),
		Jobs:         f.jobs,
		JobsSet:      fs.Changed("jobs"),
		Strict:       f.strict,
		Check:        f.check,
		Verbose:      f.verbose,
		Quiet:        f.quiet,
		NoColor:      f.noColor,
	}
	if fs.Changed("config") {
		if inv.ConfigPath, err = resolvePath("--config", f.config); err != nil {
			return Invocation{}, err
		}
	}
	if fs.Changed("report") {
		p, err := resolvePath("--report", f.report)
		if err != nil {
			return Invocation{}, err
		}
		inv.Report = ReportConfig{Enabled: true, Path: p}
	}
	return inv, nil
}

func resolvePath(what, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalidInvocationf("%s must not be empty", what)
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", invalidInvocationf("%s: %v", what, err)
	}
	return filepath.Clean(expanded), nil
}

// ExitCode extracts a semantic exit code from an error.
// If the error is not a known invocation error, it returns ExitInternalError.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
