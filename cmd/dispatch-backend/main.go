package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"dispatch-backend/internal/config"
	"dispatch-backend/internal/env"
	"dispatch-backend/internal/infrastructure/events"
	"dispatch-backend/internal/infrastructure/repo"
	"dispatch-backend/internal/infrastructure/upstream"
	"dispatch-backend/internal/server"
	"dispatch-backend/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
)

// store is everything the services persist through.
type store interface {
	usecase.OrderRepo
	usecase.AssignmentRepo
	usecase.StoreRepo
	usecase.CourierRepo
	usecase.NotificationRepo
}

func main() {
	env.Load(".env", ".env.local")

	configPath := pflag.String("config", os.Getenv("DISPATCH_CONFIG"), "YAML config file")
	port := pflag.Int("port", 0, "listen port (overrides config)")
	envName := pflag.String("env", "", "environment name (overrides config)")
	logJSON := pflag.Bool("log-json", true, "JSON logs instead of text")
	issueToken := pflag.String("issue-admin-token", "", "print an admin token for `subject` and exit")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *envName != "" {
		cfg.Env = *envName
	}
	if pflag.CommandLine.Changed("log-json") {
		cfg.LogJSON = *logJSON
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log := newLogger(cfg)
	slog.SetDefault(log)

	admin := &usecase.AdminAuth{Secret: cfg.Secrets.AdminJWT}
	if *issueToken != "" {
		tok, err := admin.Issue(*issueToken)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	if err := run(cfg, log, admin); err != nil {
		log.Error("dispatch-backend stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Env == "dev" {
		opts.Level = slog.LevelDebug
	}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogJSON {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h).With("service", "dispatch-backend", "env", cfg.Env)
}

func run(cfg config.Config, log *slog.Logger, admin *usecase.AdminAuth) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, _ := json.Marshal(cfg)
	log.Info("starting", "config", string(b))

	var st store
	if cfg.DatabaseURL != "" {
		pg, err := repo.NewPostgresRepo(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		st = pg
	} else {
		log.Warn("DISPATCH_DATABASE_URL not set, using in-memory store")
		st = repo.NewMemoryStore()
	}

	var publisher usecase.EventPublisher
	if cfg.Events.AMQPURL != "" {
		p, err := events.Dial(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
		log.Info("status events enabled", "exchange", cfg.Events.Exchange)
	}

	for name, v := range map[string]string{
		"webhook":   cfg.Secrets.Webhook,
		"import":    cfg.Secrets.Import,
		"upstream":  cfg.Secrets.Upstream,
		"admin_jwt": cfg.Secrets.AdminJWT,
	} {
		if v == "" {
			log.Warn("secret not configured, dependent endpoints will reject or fail", "secret", name)
		}
	}

	client := &upstream.Client{
		BaseURL:    cfg.Upstream.BaseURL,
		Secret:     cfg.Secrets.Upstream,
		ListLookup: cfg.Upstream.StatusLookup == "list",
		HTTP:       &http.Client{Timeout: cfg.Upstream.Timeout},
	}
	guard := &usecase.SecretGuard{WebhookSecret: cfg.Secrets.Webhook, ImportSecret: cfg.Secrets.Import, Log: log}
	mirror := &usecase.Mirror{Upstream: client, Log: log}
	assignments := &usecase.AssignmentSync{Repo: st, Mirror: mirror, Log: log}
	importer := &usecase.ImportService{
		Orders:        st,
		Notifications: st,
		Upstream:      client,
		Guard:         guard,
		SourceTag:     cfg.Upstream.SourceTag,
		Log:           log,
	}
	resolver := &usecase.Resolver{Stores: st, Importer: importer, Log: log}

	poller := &usecase.Poller{
		Upstream: client,
		Orders:   st,
		Importer: importer,
		Statuses: cfg.Poll.Statuses,
		Interval: cfg.Poll.Interval,
		Log:      log,
	}
	go poller.Run(ctx)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(server.Deps{
		Status: &usecase.StatusService{
			Orders:      st,
			Couriers:    st,
			Assignments: assignments,
			Mirror:      mirror,
			Events:      publisher,
			Guard:       guard,
			Log:         log,
		},
		Importer: importer,
		Resolver: resolver,
		Assign: &usecase.AssignService{
			Orders:      st,
			Couriers:    st,
			Stores:      st,
			Importer:    importer,
			Resolver:    resolver,
			Assignments: assignments,
			Log:         log,
		},
		Couriers: &usecase.CourierService{Repo: st},
		Stores:   &usecase.StoreService{Repo: st, Log: log},
		Admin:    admin,
		Log:      log,
	})

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", hs.Addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
