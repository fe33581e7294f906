package metrics

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

const (
	defaultStatsdAddr = "127.0.0.1:8125"
	statsdNamespace   = "rohlik_bridge."
)

var Client statsd.ClientInterface = &statsd.NoOpClient{}
var runtimeGlobalTags = make([]string, 0)

// Setup dials the statsd agent at addr (default agent address when empty).
// The bridge runs fine without an agent; metrics then noop.
func Setup(addr string) {
	if addr == "" {
		addr = defaultStatsdAddr
	}
	c, err := statsd.New(addr)
	if err != nil {
		Client = &statsd.NoOpClient{}
		log.Info().Str("addr", addr).Msg("failed connecting to statsd agent => metrics will noop")
		return
	}
	c.Namespace = statsdNamespace
	Client = c
	log.Info().Str("addr", addr).Msg("successfully connected to statsd agent")
}

func AddGlobalTags(tags []string) {
	runtimeGlobalTags = append(runtimeGlobalTags, tags...)
}

func Count(name string, value int64, tags []string) error {
	tags = append(runtimeGlobalTags, tags...)
	return Client.Count(name, value, tags, 1.0 /* rate */)
}

func Gauge(name string, value float64, tags []string) error {
	tags = append(runtimeGlobalTags, tags...)
	return Client.Gauge(name, value, tags, 1.0 /* rate */)
}

func Distribution(name string, value float64, tags []string) error {
	tags = append(runtimeGlobalTags, tags...)
	return Client.Distribution(name, value, tags, 1.0 /* rate */)
}

func Incr(name string, tags []string) error {
	tags = append(runtimeGlobalTags, tags...)
	return Client.Incr(name, tags, 1.0 /* rate */)
}

func BenchmarkMethod(startTime time.Time, methodName string, tags []string) {
	elapsed := time.Since(startTime)
	metricName := fmt.Sprintf("%s.elapsed_ns", methodName)
	Distribution(metricName, float64(elapsed.Nanoseconds()), tags)
}
