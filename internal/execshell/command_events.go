package execshell

// CommandEventObserver receives lifecycle notifications for command execution.
type CommandEventObserver interface {
	// CommandStarted notifies observers that the process is about to launch.
	CommandStarted(command ShellCommand)
	// CommandCompleted notifies observers that the process exited and supplies the result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports failures where no exit status exists: launch, timeout or wait.
	CommandExecutionFailed(command ShellCommand, failure error)
}

type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand) {}

func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}

// CommandEventObservers fans events out to several observers in order.
type CommandEventObservers []CommandEventObserver

// CommandStarted implements CommandEventObserver.
func (observers CommandEventObservers) CommandStarted(command ShellCommand) {
	for _, observer := range observers {
		if observer != nil {
			observer.CommandStarted(command)
		}
	}
}

// CommandCompleted implements CommandEventObserver.
func (observers CommandEventObservers) CommandCompleted(command ShellCommand, result ExecutionResult) {
	for _, observer := range observers {
		if observer != nil {
			observer.CommandCompleted(command, result)
		}
	}
}

// CommandExecutionFailed implements CommandEventObserver.
func (observers CommandEventObservers) CommandExecutionFailed(command ShellCommand, failure error) {
	for _, observer := range observers {
		if observer != nil {
			observer.CommandExecutionFailed(command, failure)
		}
	}
}
