//go:build windows

package execshell

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

const (
	windowsPlatformNameConstant             = "windows"
	windowsShellEnvironmentVariableConstant = "ComSpec"
	windowsDefaultShellConstant             = "cmd.exe"
	windowsShellCommandLineTemplateConstant = `%s /d /s /c "%s"`
)

// WindowsPlatform launches processes from a single escaped command line and hides the
// console window unless asked to show it.
type WindowsPlatform struct{}

func newNativePlatform() Platform {
	return WindowsPlatform{}
}

// Name implements Platform.
func (WindowsPlatform) Name() string {
	return windowsPlatformNameConstant
}

// ResolveCommand implements Platform.
func (WindowsPlatform) ResolveCommand(spec CommandSpec, useShell bool) (ResolvedCommand, error) {
	if useShell {
		commandLine, lineError := shellCommandLine(spec, windows.ComposeCommandLine)
		if lineError != nil {
			return ResolvedCommand{}, lineError
		}
		shellPath := strings.TrimSpace(os.Getenv(windowsShellEnvironmentVariableConstant))
		if len(shellPath) == 0 {
			shellPath = windowsDefaultShellConstant
		}
		return ResolvedCommand{
			Executable:  shellPath,
			CommandLine: fmt.Sprintf(windowsShellCommandLineTemplateConstant, windows.EscapeArg(shellPath), commandLine),
		}, nil
	}

	tokens, tokensError := resolveTokens(spec)
	if tokensError != nil {
		return ResolvedCommand{}, tokensError
	}
	return ResolvedCommand{
		Executable:  tokens[0],
		Arguments:   tokens[1:],
		CommandLine: windows.ComposeCommandLine(tokens),
	}, nil
}

// PrepareProcess implements Platform.
func (WindowsPlatform) PrepareProcess(process *exec.Cmd, resolved ResolvedCommand, showWindow bool) {
	if process == nil {
		return
	}
	attributes := &syscall.SysProcAttr{CmdLine: resolved.CommandLine}
	if !showWindow {
		attributes.HideWindow = true
		attributes.CreationFlags |= windows.CREATE_NO_WINDOW
	}
	process.SysProcAttr = attributes
}

// TerminateProcess implements Platform.
func (WindowsPlatform) TerminateProcess(process *os.Process) error {
	if process == nil {
		return nil
	}
	return process.Kill()
}
