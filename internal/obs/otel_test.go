package obs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closer struct {
	closed bool
	err    error
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "courtsync", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_ShutdownClosesConnection(t *testing.T) {
	// grpc.NewClient is lazy, nothing needs to listen here
	shutdown, err := InitTracer(context.Background(), "courtsync", "127.0.0.1:4317")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)

	// a second shutdown sees the connection already closed
	err = shutdown(context.Background())
	assert.Error(t, err)
}

func TestShutdownFunc(t *testing.T) {
	conn := &closer{}
	flushed := false
	shutdown := shutdownFunc(func(context.Context) error {
		flushed = true
		return nil
	}, conn)

	require.NoError(t, shutdown(context.Background()))
	assert.True(t, flushed)
	assert.True(t, conn.closed)
}

func TestShutdownFunc_JoinsErrors(t *testing.T) {
	flushErr := errors.New("flush failed")
	closeErr := errors.New("close failed")
	conn := &closer{err: closeErr}

	err := shutdownFunc(func(context.Context) error { return flushErr }, conn)(context.Background())
	assert.ErrorIs(t, err, flushErr)
	assert.ErrorIs(t, err, closeErr)
	assert.True(t, conn.closed, "connection is closed even when the flush fails")
}
