package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"sjsage522/sailingworker/internal/models"
	"sjsage522/sailingworker/logger"
	"sjsage522/sailingworker/pkg/errors"
)

// Stream suffixes under the configured prefix
const (
	TripsStream = "trips"
	RunsStream  = "runs"
)

// Message fields carrying the base64 encoded JSON payload
const (
	TripField   = "b64_trip"
	ReportField = "b64_report"
)

// RedisPublisher implements Publisher using Redis streams
type RedisPublisher struct {
	client          *redis.Client
	streamPrefix    string
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, streamPrefix string, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		streamPrefix:    streamPrefix,
		streamMaxLength: streamMaxLength,
	}
}

// Stream returns the full stream name for suffix
func (p *RedisPublisher) Stream(suffix string) string {
	return p.streamPrefix + ":" + suffix
}

// Ping checks the connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// PublishTrip adds the trip to <prefix>:trips keyed by its natural key
func (p *RedisPublisher) PublishTrip(ctx context.Context, trip *models.Trip) error {
	return p.publish(ctx, TripsStream, TripField, trip, map[string]interface{}{"key": trip.Key()})
}

// PublishReport adds the run summary to <prefix>:runs
func (p *RedisPublisher) PublishReport(ctx context.Context, report *models.RunReport) error {
	return p.publish(ctx, RunsStream, ReportField, report, nil)
}

// publish JSON encodes v and base64 encodes the result before adding it
func (p *RedisPublisher) publish(ctx context.Context, suffix, field string, v interface{}, extra map[string]interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.NewPublisher(suffix, "cannot encode message", err)
	}

	values := map[string]interface{}{
		field: base64.StdEncoding.EncodeToString(data),
	}
	for k, val := range extra {
		values[k] = val
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.Stream(suffix),
		Values: values,
	}).Err()
	if err != nil {
		return errors.NewPublisher(p.Stream(suffix), "xadd failed", err)
	}
	return nil
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	log := logger.ForPublisher()
	for _, suffix := range []string{TripsStream, RunsStream} {
		n, err := p.client.XTrimMaxLen(ctx, p.Stream(suffix), int64(p.streamMaxLength)).Result()
		if err != nil {
			return errors.NewPublisher(p.Stream(suffix), "trim failed", err)
		}
		if n > 0 {
			log.Debug().Str("stream", p.Stream(suffix)).Int64("trimmed", n).Msg("stream trimmed")
		}
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
