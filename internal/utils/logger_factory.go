package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Supported log levels.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Supported log formats.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

// LogFormats lists the accepted log format names in display order.
func LogFormats() []string {
	return []string{string(LogFormatStructured), string(LogFormatConsole)}
}

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// LoggerFactory builds zap loggers writing to a single sink.
type LoggerFactory struct {
	sink zapcore.WriteSyncer
}

// NewLoggerFactory constructs a factory writing to standard error.
func NewLoggerFactory() *LoggerFactory {
	return NewLoggerFactoryWithSink(os.Stderr)
}

// NewLoggerFactoryWithSink constructs a factory writing to the provided writer.
func NewLoggerFactoryWithSink(sink io.Writer) *LoggerFactory {
	if sink == nil {
		sink = os.Stderr
	}
	return &LoggerFactory{sink: zapcore.Lock(zapcore.AddSync(sink))}
}

// CreateLogger produces a logger honoring the requested level and format.
// Level and format names are matched case-insensitively.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	zapLogLevel, levelExists := logLevelMapping[LogLevel(normalizeName(string(requestedLogLevel)))]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	var encoder zapcore.Encoder
	switch LogFormat(normalizeName(string(requestedLogFormat))) {
	case LogFormatStructured:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case LogFormatConsole:
		encoderConfiguration := zap.NewDevelopmentEncoderConfig()
		encoderConfiguration.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfiguration)
	default:
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	core := zapcore.NewCore(encoder, factory.sink, zap.NewAtomicLevelAt(zapLogLevel))
	return zap.New(core, zap.ErrorOutput(factory.sink)), nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
