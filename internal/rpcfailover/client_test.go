package rpcfailover

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresAtLeastOneEndpoint(t *testing.T) {
	_, err := New(zerolog.Nop(), nil)
	require.Error(t, err)
}

func TestNew_BuildsOneClientPerEndpoint(t *testing.T) {
	c, err := New(zerolog.Nop(), []string{"https://a.example", "https://b.example"})
	require.NoError(t, err)
	require.Equal(t, 2, c.EndpointCount())
	require.Equal(t, "https://a.example", c.CurrentEndpoint())
}

func TestRotate_WrapsAroundEndpointList(t *testing.T) {
	c, err := New(zerolog.Nop(), []string{"https://a.example", "https://b.example", "https://c.example"})
	require.NoError(t, err)

	require.Equal(t, 1, c.rotate())
	require.Equal(t, 2, c.rotate())
	require.Equal(t, 0, c.rotate())
}

func TestIsRateLimited(t *testing.T) {
	require.True(t, isRateLimited(errString("429 Too Many Requests")))
	require.True(t, isRateLimited(errString("rate limit: too many requests")))
	require.False(t, isRateLimited(errString("connection refused")))
	require.False(t, isRateLimited(nil))
}

type errString string

func (e errString) Error() string { return string(e) }
