package grpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetConnectionReuses(t *testing.T) {
	p := NewPool(WithLogger(zap.NewNop()))
	defer p.Close()

	a, err := p.GetConnection("passthrough:///atm-1:50051")
	require.NoError(t, err)
	b, err := p.GetConnection("passthrough:///atm-1:50051")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := p.GetConnection("passthrough:///atm-2:50051")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestGetConnectionReplacesClosed(t *testing.T) {
	p := NewPool()
	defer p.Close()

	a, err := p.GetConnection("passthrough:///atm-1:50051")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := p.GetConnection("passthrough:///atm-1:50051")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestClose(t *testing.T) {
	p := NewPool()
	_, err := p.GetConnection("passthrough:///atm-1:50051")
	require.NoError(t, err)

	require.NoError(t, p.Close())
	_, ok := p.load("passthrough:///atm-1:50051")
	assert.False(t, ok)
}
