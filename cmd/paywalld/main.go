// Command paywalld serves a paywall ledger over HTTP.
//
// Settlement runs on an in-memory token seeded from PAYWALL_SEED. Receipts
// for cross-domain migration travel over Kafka when PAYWALL_KAFKA_BROKERS is
// set, otherwise over Redis Streams when PAYWALL_REDIS_URL is set.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/paywall"
	"github.com/xraph/paywall/api"
	audithook "github.com/xraph/paywall/audit_hook"
	"github.com/xraph/paywall/observability"
	"github.com/xraph/paywall/payment"
	"github.com/xraph/paywall/store/memory"
	"github.com/xraph/paywall/transport/kafka"
	"github.com/xraph/paywall/transport/redisstream"
)

func main() {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("failed to read configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("paywalld exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	token := payment.NewMemoryToken(cfg.Ledger.Denom)
	if err := cfg.Ledger.seed(token); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	audit := audithook.New(audithook.RecorderFunc(func(ctx context.Context, ev *audithook.AuditEvent) error {
		logger.InfoContext(ctx, "audit",
			"action", ev.Action,
			"resource", ev.Resource,
			"resource_id", ev.ResourceID,
			"outcome", ev.Outcome,
			"severity", ev.Severity,
			"reason", ev.Reason,
		)
		return nil
	}), audithook.WithLogger(logger))

	opts := []paywall.Option{
		paywall.WithLogger(logger),
		paywall.WithDomain(cfg.Ledger.Domain),
		paywall.WithAccount(cfg.Ledger.Account),
		paywall.WithOwner(cfg.Ledger.Owner),
		paywall.WithPlatformFee(cfg.Ledger.PlatformFee),
		paywall.WithReceiptDedup(cfg.Ledger.ReceiptDedup),
		paywall.WithTrustedDomains(cfg.Ledger.TrustedDomains...),
		paywall.WithIDSpace(cfg.Ledger.IDSpace),
		paywall.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))),
		paywall.WithPlugin(audit),
	}
	if cfg.Ledger.Treasury != "" {
		opts = append(opts, paywall.WithTreasury(cfg.Ledger.Treasury))
	}

	g, ctx := errgroup.WithContext(ctx)

	// consumers are started once the ledger exists; they deliver into it.
	var consumers []func(context.Context, *paywall.Ledger) error

	switch {
	case len(cfg.Kafka.Brokers) > 0:
		group := cfg.Kafka.Group
		if group == "" {
			group = "paywall-" + cfg.Ledger.Domain
		}
		client, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.ConsumerGroup(group),
			kgo.ConsumeTopics(cfg.Kafka.Topic),
			kgo.DisableAutoCommit(),
		)
		if err != nil {
			return fmt.Errorf("kafka client: %w", err)
		}
		defer client.Close()

		opts = append(opts, paywall.WithTransport(kafka.NewProducer(client, cfg.Kafka.Topic)))
		consumers = append(consumers, func(ctx context.Context, l *paywall.Ledger) error {
			return kafka.NewConsumer(client, cfg.Ledger.Domain, l, kafka.WithLogger(logger)).Run(ctx)
		})
		logger.Info("kafka transport enabled", "topic", cfg.Kafka.Topic, "group", group)

	case cfg.Redis.URL != "":
		ropts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis URL: %w", err)
		}
		client := redis.NewClient(ropts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}

		opts = append(opts, paywall.WithTransport(
			redisstream.NewProducer(client, cfg.Redis.Stream, redisstream.WithMaxLen(cfg.Redis.MaxLen)),
		))
		group := cfg.Redis.Group
		if group == "" {
			group = "paywall-" + cfg.Ledger.Domain
		}
		consumers = append(consumers, func(ctx context.Context, l *paywall.Ledger) error {
			return redisstream.NewConsumer(client, cfg.Redis.Stream, cfg.Ledger.Domain, l,
				redisstream.WithLogger(logger),
				redisstream.WithGroup(group),
				redisstream.WithConsumerName(cfg.Redis.Consumer),
			).Run(ctx)
		})
		logger.Info("redis transport enabled", "stream", cfg.Redis.Stream, "group", group)
	}

	ledger, err := paywall.New(memory.New(), token, opts...)
	if err != nil {
		return err
	}
	if err := ledger.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := ledger.Stop(); err != nil {
			logger.Warn("ledger stop failed", "error", err)
		}
	}()

	for _, consume := range consumers {
		g.Go(func() error { return consume(ctx, ledger) })
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := ledger.Store().Ping(r.Context()); err != nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.PlainText(w, r, err.Error())
			return
		}
		render.PlainText(w, r, http.StatusText(http.StatusOK))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/v1", api.New(ledger, api.WithLogger(logger)).Routes())

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	g.Go(func() error {
		logger.Info("paywalld listening", "addr", cfg.Addr, "domain", ledger.Domain())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
