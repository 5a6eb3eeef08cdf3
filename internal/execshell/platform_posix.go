//go:build !windows

package execshell

import (
	"io"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

const (
	posixPlatformNameConstant     = "posix"
	posixShellPathConstant        = "/bin/sh"
	posixShellCommandFlagConstant = "-c"
)

// PosixPlatform launches argument vectors directly and runs every process in its own group
// so that termination reaches children started by a shell.
type PosixPlatform struct{}

func newNativePlatform() Platform {
	return PosixPlatform{}
}

// Name implements Platform.
func (PosixPlatform) Name() string {
	return posixPlatformNameConstant
}

// ResolveCommand implements Platform.
func (PosixPlatform) ResolveCommand(spec CommandSpec, useShell bool) (ResolvedCommand, error) {
	if useShell {
		commandLine, lineError := shellCommandLine(spec, JoinArguments)
		if lineError != nil {
			return ResolvedCommand{}, lineError
		}
		return ResolvedCommand{
			Executable:  posixShellPathConstant,
			Arguments:   []string{posixShellCommandFlagConstant, commandLine},
			CommandLine: commandLine,
		}, nil
	}

	tokens, tokensError := resolveTokens(spec)
	if tokensError != nil {
		return ResolvedCommand{}, tokensError
	}
	return ResolvedCommand{
		Executable:  tokens[0],
		Arguments:   tokens[1:],
		CommandLine: JoinArguments(tokens),
	}, nil
}

// PrepareProcess implements Platform. There is no console window concept, so showWindow is ignored.
// A process reading the controlling terminal stays in the foreground group so it is not
// stopped by SIGTTIN.
func (PosixPlatform) PrepareProcess(process *exec.Cmd, _ ResolvedCommand, _ bool) {
	if process == nil {
		return
	}
	process.SysProcAttr = &syscall.SysProcAttr{Setpgid: !readsTerminal(process.Stdin)}
}

// TerminateProcess implements Platform by sending SIGKILL to the whole process group,
// falling back to the process itself when it does not lead a group.
func (PosixPlatform) TerminateProcess(process *os.Process) error {
	if process == nil {
		return nil
	}
	if killError := unix.Kill(-process.Pid, unix.SIGKILL); killError == nil {
		return nil
	}
	return process.Kill()
}

func readsTerminal(input io.Reader) bool {
	inputFile, isFile := input.(*os.File)
	return isFile && term.IsTerminal(int(inputFile.Fd()))
}
