//go:build windows

package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/mattn/go-isatty"
)

// HandleTerminalCompatibility re-execs the current process inside a
// compatibility shim when the console it's running in needs one. The only
// case handled today is a mintty console (Git Bash, Cygwin), which can't
// read from Go's stdin handle directly and needs the process relaunched
// under winpty.
func HandleTerminalCompatibility() {
	if !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return
	}

	winpty, err := exec.LookPath("winpty")
	if err != nil {
		Fatal(errors.New("running inside a mintty console and unable to locate winpty"))
	}

	executable, err := os.Executable()
	if err != nil {
		Fatal(fmt.Errorf("running inside a mintty console and unable to locate the current executable: %w", err))
	}

	arguments := append([]string{executable}, os.Args[1:]...)
	relaunch := exec.Command(winpty, arguments...)
	relaunch.Stdin = os.Stdin
	relaunch.Stdout = os.Stdout
	relaunch.Stderr = os.Stderr

	relaunch.Run()
	os.Exit(relaunch.ProcessState.ExitCode())
}
