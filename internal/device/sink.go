package device

import (
	"fmt"

	"github.com/go-redis/redis/v7"
	"github.com/rs/zerolog/log"

	"github.com/greenbasket/rohlikd/internal/metrics"
)

// Sink is a named capability value owned by the host platform. The device
// pushes plain scalars; hosts decide what to do with them.
type Sink interface {
	Publish(name string, value interface{}) error
}

// LogSink writes capability updates as structured log events. It is the
// default sink when nothing else is configured.
type LogSink struct{}

func (LogSink) Publish(name string, value interface{}) error {
	log.Info().Str("capability", name).Str("value", fmt.Sprint(value)).Msg("capability update")
	return nil
}

// StatsdSink gauges numeric and boolean capabilities. String capabilities
// have no statsd shape and are skipped.
type StatsdSink struct{}

func (StatsdSink) Publish(name string, value interface{}) error {
	switch v := value.(type) {
	case int:
		return metrics.Gauge("capability."+name, float64(v), nil)
	case float64:
		return metrics.Gauge("capability."+name, v, nil)
	case bool:
		n := 0.0
		if v {
			n = 1.0
		}
		return metrics.Gauge("capability."+name, n, nil)
	default:
		return nil
	}
}

// RedisSink mirrors the latest capability values into a redis hash so the
// hub host can read device state without linking the daemon.
type RedisSink struct {
	client  *redis.Client
	hashKey string
}

func MakeRedisSink(addr, hashKey string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping().Err(); err != nil {
		return nil, err
	}
	if hashKey == "" {
		hashKey = "rohlikd:capabilities"
	}
	return &RedisSink{client: client, hashKey: hashKey}, nil
}

func (s *RedisSink) Publish(name string, value interface{}) error {
	return s.client.HSet(s.hashKey, name, fmt.Sprint(value)).Err()
}

// MultiSink fans one publish out to several sinks. A failing sink is logged
// and does not block the others.
type MultiSink []Sink

func (m MultiSink) Publish(name string, value interface{}) error {
	for _, sink := range m {
		if err := sink.Publish(name, value); err != nil {
			log.Info().Err(err).Str("capability", name).Msg("sink publish failed")
		}
	}
	return nil
}
