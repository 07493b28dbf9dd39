package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"production-tracker/internal/common/db"
	"production-tracker/internal/common/logger"
	"production-tracker/internal/common/mq"
	"production-tracker/internal/microservices/notificator"
	"production-tracker/internal/microservices/order"
	"production-tracker/internal/microservices/recorder"
	"production-tracker/internal/microservices/tracker"
)

var trackingCmd = &cobra.Command{
	Use:   "tracking-service",
	Short: "Serve order search, status JSON and the status view",
	RunE: func(cmd *cobra.Command, args []string) error {
		lg := logger.New("tracking-service")
		defer func() { _ = lg.Sync() }()
		if err := cfg.Validate(true, false); err != nil {
			return err
		}

		conn, err := connectDB(cmd.Context(), lg)
		if err != nil {
			return err
		}
		defer conn.Close()

		return tracker.Start(cmd.Context(), cfg, conn, lg)
	},
}

var recorderCmd = &cobra.Command{
	Use:   "stage-recorder",
	Short: "Consume stage records from the kiosks",
	RunE: func(cmd *cobra.Command, args []string) error {
		lg := logger.New("stage-recorder")
		defer func() { _ = lg.Sync() }()
		if err := cfg.Validate(true, true); err != nil {
			return err
		}

		conn, err := connectDB(cmd.Context(), lg)
		if err != nil {
			return err
		}
		defer conn.Close()
		client, err := dialMQ(lg)
		if err != nil {
			return err
		}
		defer client.Close()

		return recorder.Run(cmd.Context(), cfg.Recorder, conn, client, lg)
	},
}

var orderCmd = &cobra.Command{
	Use:   "order-service",
	Short: "Serve sales order registration",
	RunE: func(cmd *cobra.Command, args []string) error {
		lg := logger.New("order-service")
		defer func() { _ = lg.Sync() }()
		if err := cfg.Validate(true, true); err != nil {
			return err
		}

		conn, err := connectDB(cmd.Context(), lg)
		if err != nil {
			return err
		}
		defer conn.Close()
		client, err := dialMQ(lg)
		if err != nil {
			return err
		}
		defer client.Close()

		return order.Run(cmd.Context(), cfg.HTTP, conn, client, lg)
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notification-subscriber",
	Short: "Log every production notification",
	RunE: func(cmd *cobra.Command, args []string) error {
		lg := logger.New("notification-subscriber")
		defer func() { _ = lg.Sync() }()
		if err := cfg.Validate(false, true); err != nil {
			return err
		}

		client, err := dialMQ(lg)
		if err != nil {
			return err
		}
		defer client.Close()

		return notificator.Start(cmd.Context(), client, lg)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracking service and the stage recorder in one process",
	RunE: func(cmd *cobra.Command, args []string) error {
		lg := logger.New("production-tracker")
		defer func() { _ = lg.Sync() }()
		if err := cfg.Validate(true, true); err != nil {
			return err
		}

		conn, err := connectDB(cmd.Context(), lg)
		if err != nil {
			return err
		}
		defer conn.Close()
		client, err := dialMQ(lg)
		if err != nil {
			return err
		}
		defer client.Close()

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return tracker.Start(ctx, cfg, conn, logger.New("tracking-service"))
		})
		g.Go(func() error {
			return recorder.Run(ctx, cfg.Recorder, conn, client, logger.New("stage-recorder"))
		})
		return g.Wait()
	},
}

// connectDB opens the pool and applies the schema.
func connectDB(ctx context.Context, lg *logger.Logger) (*db.Conn, error) {
	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		lg.Error("db_connection_failed", err, map[string]any{"host": cfg.Database.Host})
		return nil, err
	}
	if err := conn.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	lg.Info("db_connected", map[string]any{"host": cfg.Database.Host, "database": cfg.Database.Name})
	return conn, nil
}

// dialMQ connects to RabbitMQ and declares the exchanges and queues.
func dialMQ(lg *logger.Logger) (*mq.Client, error) {
	client, err := mq.Dial(cfg.Rabbit)
	if err != nil {
		lg.Error("rabbitmq_connection_failed", err, map[string]any{"host": cfg.Rabbit.Host})
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	if err := client.DeclareAll(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "declare topology")
	}
	lg.Info("rabbitmq_connected", map[string]any{"host": cfg.Rabbit.Host, "vhost": cfg.Rabbit.VHost})
	return client, nil
}
