package audit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis sink connection settings.
type Config struct {
	// URL is the Redis connection URL (e.g. redis://localhost:6379).
	URL string

	// Password overrides any credential embedded in the URL. This is
	// the external credential supplied via configuration.
	Password string

	// Stream is the Redis stream the records are appended to.
	Stream string
}

// DefaultConfig returns sensible defaults for the Redis sink.
func DefaultConfig() Config {
	return Config{
		URL:    "redis://localhost:6379",
		Stream: "onomatoparty:events",
	}
}

// RedisSink appends records to a Redis stream with XADD. One entry per
// record, field-per-attribute, timestamped from the injected clock.
type RedisSink struct {
	client *redis.Client
	stream string
	clock  quartz.Clock
}

// NewRedisSink connects to Redis and verifies the connection before
// returning. A connection failure here is a startup error; once
// running, individual write failures are the caller's to log.
func NewRedisSink(cfg Config, clock quartz.Clock) (*RedisSink, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewRedisSinkWithClient(client, cfg, clock), nil
}

// NewRedisSinkWithClient wraps an existing client, used by tests.
func NewRedisSinkWithClient(client *redis.Client, cfg Config, clock quartz.Clock) *RedisSink {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &RedisSink{
		client: client,
		stream: cfg.Stream,
		clock:  clock,
	}
}

func (s *RedisSink) RecordSubmission(ctx context.Context, rec SubmissionRecord) error {
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"event":       "submission",
			"room":        rec.RoomID,
			"round":       strconv.Itoa(rec.Round),
			"card":        rec.CardID,
			"player_id":   rec.PlayerID,
			"player_name": rec.PlayerName,
			"answer":      rec.Answer,
			"recorded_at": s.clock.Now().UTC().Format(recordTimeFormat),
		},
	}).Err()
}

func (s *RedisSink) RecordChoice(ctx context.Context, rec ChoiceRecord) error {
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"event":       "choice",
			"room":        rec.RoomID,
			"round":       strconv.Itoa(rec.Round),
			"card":        rec.CardID,
			"answer":      rec.Answer,
			"chosen":      strings.Join(rec.ChosenNames, ","),
			"recorded_at": s.clock.Now().UTC().Format(recordTimeFormat),
		},
	}).Err()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

var _ Sink = (*RedisSink)(nil)
