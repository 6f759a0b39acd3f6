// Package logx configures the structured logger used by shadergen.
package logx

import "log/slog"

// UserLevel is the verbosity used when no flag says otherwise.
var UserLevel = slog.LevelInfo

// LevelFromFlags returns the level for the given verbosity flags. verbose
// wins over quiet; neither means UserLevel.
func LevelFromFlags(verbose, quiet bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelWarn
	default:
		return UserLevel
	}
}
