// Package execshell runs one external command at a time and returns its captured result.
//
// Executor resolves a CommandSpec into a platform-correct argument vector, wires the
// standard streams, waits for completion within an optional timeout, decodes captured
// bytes through an ordered encoding chain, and reports failures through typed errors
// (ConfigurationError, CommandExecutionError, CommandTimeoutError, CommandFailedError).
// OSCommandRunner performs the actual process launch and guarantees the process is
// reaped or killed before it returns. The package never logs; lifecycle events are
// delivered to a CommandEventObserver supplied by the caller.
package execshell
