package resources

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"preflight/internal/config"
	"preflight/pkg/errors"
)

const defaultDialTimeout = 5 * time.Second

// Network brings a raw TCP endpoint online. The connection probe dials and
// immediately closes; initialization keeps an open connection as the
// resource handle and records the resolved addresses.
type Network struct {
	base
	cfg   *config.NetworkConfig
	retry retryer

	mu   sync.Mutex
	conn net.Conn
}

// NewNetwork creates the network variant from its configuration.
func NewNetwork(name string, cfg *config.NetworkConfig, logger *zap.Logger) *Network {
	n := &Network{
		base: newBase(name, logger),
		cfg:  cfg,
	}
	if cfg != nil {
		n.retry = newRetryer(cfg.Retry, n.status, n.logger)
	}
	return n
}

func (n *Network) ValidateConfiguration() error {
	if n.cfg == nil {
		return n.fail(errors.NewConfiguration("network configuration is missing"))
	}
	return validateConfig(n.status, n.cfg)
}

// TestConnection dials the endpoint once per attempt and closes immediately,
// retrying transient failures with backoff.
func (n *Network) TestConnection(ctx context.Context) error {
	return n.retry.do(ctx, "network endpoint probe", func(ctx context.Context) error {
		conn, err := n.dial(ctx)
		if err != nil {
			return errors.NewConnectivity("endpoint unreachable", err)
		}
		return conn.Close()
	})
}

// Initialize opens the long-lived connection and records the resolved
// local and remote addresses.
func (n *Network) Initialize(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn != nil {
		return nil
	}

	var conn net.Conn
	if err := n.retry.do(ctx, "network endpoint dial", func(ctx context.Context) error {
		c, err := n.dial(ctx)
		if err != nil {
			return errors.NewConnectivity("endpoint unreachable", err)
		}
		conn = c
		return nil
	}); err != nil {
		return err
	}

	n.status.AddData("remote_addr", conn.RemoteAddr().String())
	n.status.AddData("local_addr", conn.LocalAddr().String())

	n.conn = conn
	n.logger.Info("endpoint connected", zap.String("remote_addr", conn.RemoteAddr().String()))
	return nil
}

// Conn returns the live connection, or nil before initialization.
func (n *Network) Conn() net.Conn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conn
}

// Close shuts the connection down. Safe to call on an uninitialized Network.
func (n *Network) Close(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	if err != nil {
		return errors.NewResource("failed to close connection", err)
	}
	return nil
}

func (n *Network) dial(ctx context.Context) (net.Conn, error) {
	timeout := n.cfg.Timeout.Std()
	if timeout == 0 {
		timeout = defaultDialTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	return dialer.DialContext(ctx, "tcp", addr)
}
