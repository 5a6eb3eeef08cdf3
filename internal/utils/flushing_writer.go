package utils

import (
	"io"
	"sync"
)

type flusher interface {
	Flush() error
}

// FlushingWriter serializes writes to a diagnostic sink and flushes buffered sinks after every write,
// so markers interleave correctly with the output of child processes.
type FlushingWriter struct {
	mutex  sync.Mutex
	writer io.Writer
}

// NewFlushingWriter wraps writer. Wrapping an existing FlushingWriter returns it unchanged.
func NewFlushingWriter(writer io.Writer) io.Writer {
	if writer == nil {
		return nil
	}
	if existingWriter, alreadyWrapped := writer.(*FlushingWriter); alreadyWrapped {
		return existingWriter
	}
	return &FlushingWriter{writer: writer}
}

// Write delegates to the wrapped writer and flushes it when it buffers.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	if flushingWriter == nil || flushingWriter.writer == nil {
		return len(data), nil
	}

	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}

	if bufferedWriter, buffers := flushingWriter.writer.(flusher); buffers {
		return bytesWritten, bufferedWriter.Flush()
	}
	return bytesWritten, nil
}
