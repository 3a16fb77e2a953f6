package exec

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopWriteCloser struct {
	bytes.Buffer
	closed bool
}

func (n *nopWriteCloser) Close() error {
	n.closed = true

	return nil
}

func TestStdinHandleWriteLine(t *testing.T) {
	w := &nopWriteCloser{}
	h := newStdinHandle(w, nil)

	require.NoError(t, h.WriteLine("hello"))
	assert.Equal(t, "hello\n", w.String())
}

func TestStdinHandleCloseIsIdempotent(t *testing.T) {
	w := &nopWriteCloser{}
	h := newStdinHandle(w, nil)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.True(t, w.closed)

	_, err := h.Write([]byte("x"))
	require.Error(t, err)
}

func TestStdinHandleForwardChannel(t *testing.T) {
	w := &nopWriteCloser{}
	ch := make(chan string, 2)
	ch <- "a"
	ch <- "b"
	close(ch)

	h := newStdinHandle(w, ch)

	require.NoError(t, h.ForwardChannel(context.Background()))
	assert.Equal(t, "ab", w.String())
	assert.True(t, w.closed)
}
