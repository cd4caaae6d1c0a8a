package sink

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"ekaraca522/dolapscraper/internal/parser"
	"ekaraca522/dolapscraper/logger"
	scrapeerrors "ekaraca522/dolapscraper/pkg/errors"
)

// RedisStreamSink publishes records to a Redis stream so downstream
// consumers can process listings while a run is still in flight. Records
// are JSON, base64-encoded into a single stream field. The stream is
// trimmed to its configured length on close, not on every append.
type RedisStreamSink struct {
	client *redis.Client
	stream string
	maxLen int
}

// NewRedisStreamSink connects to Redis and verifies the connection.
func NewRedisStreamSink(addr string, db int, stream string, maxLen int) (*RedisStreamSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, scrapeerrors.NewSink("", "redis connection failed", err)
	}

	logger.ForSink().Info().Str("addr", addr).Str("stream", stream).Msg("Redis stream sink connected")
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}, nil
}

// Append publishes one record to the stream.
func (s *RedisStreamSink) Append(record *parser.Listing) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return scrapeerrors.NewSink("", "marshal record", err)
	}
	encoded := base64.StdEncoding.EncodeToString(payload)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{"listing": encoded},
	}).Err()
	if err != nil {
		return scrapeerrors.NewSink("", "stream append failed", err)
	}
	return nil
}

// Close trims the stream to its bounded length and releases the client.
func (s *RedisStreamSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.maxLen > 0 {
		if err := s.client.XTrimMaxLen(ctx, s.stream, int64(s.maxLen)).Err(); err != nil {
			s.client.Close()
			return scrapeerrors.NewSink("", "stream trim failed", err)
		}
	}
	return s.client.Close()
}
