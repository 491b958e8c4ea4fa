//go:build !windows

package cmd

// HandleTerminalCompatibility re-execs the current process inside a
// compatibility shim when the console it's running in needs one. On POSIX
// platforms no terminal needs that treatment, so this is a no-op.
func HandleTerminalCompatibility() {}
