package resources

import (
	"context"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"preflight/internal/config"
	"preflight/pkg/errors"
)

// Queue brings the message bus online. The connection probe describes the
// configured event bus, which both verifies credentials and confirms the bus
// exists; initialization keeps the client for the rest of the process.
type Queue struct {
	base
	cfg *config.QueueConfig

	mu     sync.Mutex
	client *eventbridge.Client
}

// NewQueue creates the queue variant from its configuration.
func NewQueue(name string, cfg *config.QueueConfig, logger *zap.Logger) *Queue {
	return &Queue{
		base: newBase(name, logger),
		cfg:  cfg,
	}
}

func (q *Queue) ValidateConfiguration() error {
	if q.cfg == nil {
		return q.fail(errors.NewConfiguration("queue configuration is missing"))
	}
	return validateConfig(q.status, q.cfg)
}

// TestConnection builds a throwaway client and describes the event bus.
func (q *Queue) TestConnection(ctx context.Context) error {
	client, err := q.newClient(ctx)
	if err != nil {
		return q.fail(err)
	}
	if _, err := client.DescribeEventBus(ctx, &eventbridge.DescribeEventBusInput{
		Name: &q.cfg.EventBusName,
	}); err != nil {
		return q.fail(errors.NewConnectivityf("event bus %q is not reachable: %v", q.cfg.EventBusName, err))
	}
	return nil
}

// Initialize opens the long-lived client and records bus diagnostics.
func (q *Queue) Initialize(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.client != nil {
		return nil
	}

	client, err := q.newClient(ctx)
	if err != nil {
		return q.fail(err)
	}
	out, err := client.DescribeEventBus(ctx, &eventbridge.DescribeEventBusInput{
		Name: &q.cfg.EventBusName,
	})
	if err != nil {
		return q.fail(errors.NewConnectivityf("event bus %q is not reachable: %v", q.cfg.EventBusName, err))
	}
	if out.Arn != nil {
		q.status.AddData("event_bus_arn", *out.Arn)
	}
	q.status.AddData("event_bus_name", q.cfg.EventBusName)
	q.status.AddData("region", q.cfg.Region)

	q.client = client
	q.logger.Info("event bus ready",
		zap.String("bus", q.cfg.EventBusName),
		zap.String("region", q.cfg.Region),
	)
	return nil
}

// Client returns the live bus client, or nil before initialization.
func (q *Queue) Client() *eventbridge.Client {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.client
}

// Close drops the client reference. The SDK client holds no connections that
// need explicit teardown.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.client = nil
	return nil
}

func (q *Queue) newClient(ctx context.Context) (*eventbridge.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(q.cfg.Region))
	if err != nil {
		return nil, errors.NewConfigurationf("failed to load AWS configuration: %v", err)
	}
	return eventbridge.NewFromConfig(awsCfg), nil
}
