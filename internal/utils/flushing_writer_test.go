package utils_test

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/caddybuild/internal/utils"
)

type failingFlushWriter struct {
	bytes.Buffer
}

func (writer *failingFlushWriter) Flush() error {
	return errors.New("flush failed")
}

func TestFlushingWriterFlushesBufferedSinks(testInstance *testing.T) {
	var destination bytes.Buffer
	bufferedWriter := bufio.NewWriterSize(&destination, 4096)

	flushingWriter := utils.NewFlushingWriter(bufferedWriter)
	bytesWritten, writeError := flushingWriter.Write([]byte("==> git push\n"))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, 13, bytesWritten)
	require.Equal(testInstance, "==> git push\n", destination.String())
}

func TestFlushingWriterWrapping(testInstance *testing.T) {
	require.Nil(testInstance, utils.NewFlushingWriter(nil))

	flushingWriter := utils.NewFlushingWriter(&bytes.Buffer{})
	require.Same(testInstance, flushingWriter, utils.NewFlushingWriter(flushingWriter))
}

func TestFlushingWriterReportsFlushErrors(testInstance *testing.T) {
	sink := &failingFlushWriter{}

	_, writeError := utils.NewFlushingWriter(sink).Write([]byte("marker"))
	require.EqualError(testInstance, writeError, "flush failed")
	require.Equal(testInstance, "marker", sink.String())
}
