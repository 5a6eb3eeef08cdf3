// Package utils holds the ambient helpers shared by the CLI commands: the Viper backed
// ConfigurationLoader, the zap LoggerFactory, and FlushingWriter for diagnostic sinks.
package utils
