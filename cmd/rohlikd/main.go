package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/greenbasket/rohlikd/internal/device"
	"github.com/greenbasket/rohlikd/internal/metrics"
	"github.com/greenbasket/rohlikd/internal/rohlik"
)

func main() {
	// Prepare background context configured to listen for cancelling.
	ctx, cancel := context.WithCancel(context.Background())

	// Configure channel to receive terminal interrupt.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	// Start goroutine to listen for interrupt signal => if received, cancel running context.
	go func() { <-sig; log.Info().Msg("shutting down bridge"); cancel() }()

	configPath := defaultConfigPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg := loadBridgeConfig(configPath)
	setLogging(cfg.LogLevel)
	metrics.Setup(cfg.StatsdAddr)
	metrics.AddGlobalTags([]string{"country:" + cfg.CountryCode})

	pacer := rohlik.MakeRequestPacer(time.Duration(cfg.RequestSpacingMs) * time.Millisecond)
	client, err := rohlik.MakeClient(rohlik.Credentials{
		Username:    cfg.Username,
		Password:    cfg.Password,
		CountryCode: cfg.CountryCode,
	}, pacer)
	if err != nil {
		panic(err)
	}

	// Eager login surfaces bad credentials at startup rather than on the
	// first poll tick.
	if err := client.Login(ctx); err != nil {
		panic(err)
	}

	sinks := device.MultiSink{device.LogSink{}, device.StatsdSink{}}
	if cfg.RedisAddr != "" {
		redisSink, err := device.MakeRedisSink(cfg.RedisAddr, cfg.RedisHashKey)
		if err != nil {
			panic(err)
		}
		sinks = append(sinks, redisSink)
	}

	dev := device.MakeDevice(client, sinks)
	dev.OnBagCount(func(count int) {
		log.Info().Int("bag_count", count).Msg("bag balance observed")
	})
	dev.OnUnavailable(func(reason string) {
		log.Info().Str("reason", reason).Msg("poll tick failed")
	})

	scheduler := device.MakeScheduler(ctx, dev, cfg.pollConfig())
	scheduler.Start()

	<-ctx.Done()
	scheduler.Stop()
	_ = client.Logout(context.Background())
}
