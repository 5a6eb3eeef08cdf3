// Package cli wires the caddybuild command line: the cobra root command, configuration
// loading through viper, zap logging, and the exec and release subcommands.
package cli
