// Package ui renders command lifecycle events for people and for log pipelines.
//
// ConsoleCommandEventLogger turns execshell events into short messages for console
// output, while StructuredCommandEventLogger emits the same events as zap fields.
package ui
