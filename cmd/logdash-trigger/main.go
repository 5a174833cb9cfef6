// Command logdash-trigger asks running dashboards to refresh by publishing a
// refresh request to the AMQP exchange.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"logdash/internal/amqp"
	"logdash/internal/cli"
	applog "logdash/internal/log"
)

func main() {
	source := flag.String("source", "cli", "Source label recorded with the request")
	timeout := flag.Duration("timeout", 10*time.Second, "Publish timeout")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is not set")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to connect to AMQP", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := client.PublishRefreshRequest(ctx, *source); err != nil {
		logger.Error("Failed to publish refresh request", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Refresh request published", applog.FieldSource, *source)
}
