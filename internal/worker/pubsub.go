package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types carried in trigger messages.
const (
	JobTypeForecastRun = "forecast_run"
	JobTypeHealthCheck = "health_check"
)

// Dispatch errors. Messages failing with these are nacked.
var (
	ErrMalformedMessage = errors.New("malformed job message")
	ErrJobFailed        = errors.New("job failed")
)

// JobMessage represents a trigger message.
type JobMessage struct {
	JobType string `json:"job_type"`

	// Locations overrides the configured targets of a forecast run.
	Locations []string `json:"locations,omitempty"`
}

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DispatcherConfig holds configuration for a Dispatcher.
type DispatcherConfig struct {
	Job *ForecastJob

	// Checks are pinged by health_check jobs, keyed by name.
	Checks map[string]Pinger

	Logger zerolog.Logger
}

// Dispatcher runs the job a message asks for.
type Dispatcher struct {
	job    *ForecastJob
	checks map[string]Pinger
	logger zerolog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		job:    cfg.Job,
		checks: cfg.Checks,
		logger: cfg.Logger,
	}
}

// Dispatch decodes and runs a message. A nil error means the message should
// be acked, which includes unknown job types.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.JobType {
	case JobTypeForecastRun:
		return d.forecastRun(ctx, msg)
	case JobTypeHealthCheck:
		return d.healthCheck(ctx)
	default:
		d.logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return nil
	}
}

func (d *Dispatcher) forecastRun(ctx context.Context, msg JobMessage) error {
	var (
		result *JobResult
		err    error
	)
	if len(msg.Locations) > 0 {
		result = d.job.RunLocations(ctx, msg.Locations)
	} else {
		result, err = d.job.Run(ctx)
		if err != nil {
			return err
		}
	}

	if result.MajorityFailed() {
		return fmt.Errorf("%w: %d of %d locations failed", ErrJobFailed, result.Failed, result.Total)
	}
	return nil
}

func (d *Dispatcher) healthCheck(ctx context.Context) error {
	names := make([]string, 0, len(d.checks))
	for name := range d.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := d.checks[name].Ping(checkCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrJobFailed, name, err)
		}
	}

	d.logger.Debug().Int("checks", len(names)).Msg("health check passed")
	return nil
}

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// A forecast run holds its message for the whole job.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 15 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	if err := h.dispatcher.Dispatch(ctx, msg.Data); err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")

	msg.Ack()
}
