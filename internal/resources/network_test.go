package resources

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"preflight/internal/config"
)

// listen opens a local TCP listener and returns its host and port.
func listen(t *testing.T) (net.Listener, string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return ln, host, port
}

func TestNetworkLifecycle(t *testing.T) {
	_, host, port := listen(t)

	n := NewNetwork("network", &config.NetworkConfig{
		Host:    host,
		Port:    port,
		Timeout: config.Duration(2 * time.Second),
	}, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, n.ValidateConfiguration())
	require.NoError(t, n.TestConnection(ctx))
	assert.Nil(t, n.Conn(), "the probe must not keep a connection")

	require.NoError(t, n.Initialize(ctx))
	require.NotNil(t, n.Conn())

	remote, ok := n.Status().Data("remote_addr")
	require.True(t, ok)
	assert.Equal(t, n.Conn().RemoteAddr().String(), remote)

	require.NoError(t, n.Close(ctx))
	assert.Nil(t, n.Conn())
	require.NoError(t, n.Close(ctx), "closing twice is safe")
}

func TestNetworkUnreachableEndpoint(t *testing.T) {
	// Bind a port, then close it so nothing listens there.
	ln, host, port := listen(t)
	ln.Close()

	n := NewNetwork("network", &config.NetworkConfig{
		Host:    host,
		Port:    port,
		Timeout: config.Duration(500 * time.Millisecond),
		Retry: config.RetryConfig{
			MaxRetries:   1,
			InitialDelay: config.Duration(time.Millisecond),
		},
	}, zap.NewNop())

	err := n.TestConnection(context.Background())
	require.Error(t, err)
	assert.True(t, n.Status().IsFailed())
	assert.Len(t, n.Status().Warnings(), 1, "one retry means one warning")
}

func TestNetworkValidation(t *testing.T) {
	n := NewNetwork("network", &config.NetworkConfig{Port: 99999}, zap.NewNop())
	require.Error(t, n.ValidateConfiguration())

	errs := n.Status().Errors()
	assert.NotEmpty(t, errs)
}
