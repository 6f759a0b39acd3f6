package cli

import (
	"context"
	"fmt"
	"io"
)

// Run is a high-level CLI entrypoint suitable for black-box tests.
// It accepts the argument slice (excluding argv[0]) and returns the result,
// whose ExitCode is the process exit status, plus any error.
//
// Help and version go to stdout; diagnostics and logs go to stderr.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) (Result, error) {
	inv, err := ParseInvocation(args)
	if err != nil {
		fmt.Fprintf(stderr, "shadergen: %v\n\n%s", err, Usage())
		return Result{ExitCode: ExitCode(err)}, err
	}
	switch {
	case inv.Help:
		fmt.Fprint(stdout, Usage())
		return Result{ExitCode: ExitSuccess}, nil
	case inv.Version:
		fmt.Fprintf(stdout, "shadergen %s\n", Version)
		return Result{ExitCode: ExitSuccess}, nil
	}
	return Execute(ctx, inv, stderr)
}
