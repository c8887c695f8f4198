// Command server runs the opsdesk backend: auth endpoints, the guarded
// application API and the operational surface (/healthz, /metrics).
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	_ "github.com/jackc/pgx/v5/stdlib"

	"opsdesk/internal/access"
	accessmetrics "opsdesk/internal/access/metrics"
	"opsdesk/internal/activity"
	activityhandler "opsdesk/internal/activity/handler"
	"opsdesk/internal/activity/kafka"
	activitystore "opsdesk/internal/activity/store"
	"opsdesk/internal/documents"
	documentshandler "opsdesk/internal/documents/handler"
	documentsstore "opsdesk/internal/documents/store"
	"opsdesk/internal/guard"
	"opsdesk/internal/identity"
	identityhandler "opsdesk/internal/identity/handler"
	"opsdesk/internal/identity/provider/hosted"
	"opsdesk/internal/identity/provider/local"
	"opsdesk/internal/platform/config"
	"opsdesk/internal/platform/httpserver"
	"opsdesk/internal/platform/logger"
	"opsdesk/internal/platform/metrics"
	platformredis "opsdesk/internal/platform/redis"
	profilehandler "opsdesk/internal/profile/handler"
	profilesvc "opsdesk/internal/profile/service"
	profilestore "opsdesk/internal/profile/store"
	httptransport "opsdesk/internal/transport/http"
)

// authProvider is the full provider surface main wires: session operations
// for the handlers plus the token check for the edge filter.
type authProvider interface {
	identity.Provider
	CheckToken(token string) error
}

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	accessMetrics := accessmetrics.New()

	// Relational store. Without DATABASE_URL everything stays in memory,
	// which is only useful for local development.
	var (
		profileStore  profileStoreIface
		activityStore activity.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		profileStore = profilestore.NewPostgres(db)
		activityStore = activitystore.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		profileStore = profilestore.NewMemory()
		activityStore = activitystore.NewMemory()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var provider authProvider
	switch cfg.AuthMode {
	case "hosted":
		provider = hosted.New(cfg.AuthURL, cfg.AuthAnonKey)
	default:
		var opts []local.Option
		if redisClient != nil {
			opts = append(opts, local.WithSessionStore(local.NewRedisSessionStore(redisClient.Client)))
		}
		provider = local.New(cfg.JWTSigningKey, opts...)
	}

	resolver := identity.NewResolver(provider, cfg.SettleDelay).
		OnRetry(accessMetrics.IncrementSessionRetry)
	profiles := profilesvc.New(profileStore, log, m)
	checker := access.NewService(resolver, profiles, log, accessMetrics)

	var sinks []activity.Sink
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(ctx, cfg.KafkaBrokers, cfg.ActivityTopic, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	recorder := activity.NewRecorder(activityStore, profileStore, log, sinks...)

	tracker := activity.NewTracker(profiles, activity.DefaultTouchInterval, log)
	if err := tracker.Start(ctx); err != nil {
		return err
	}
	defer tracker.Stop()

	// Sign-ins count as activity even before the first guarded request lands.
	events, unsubscribe := provider.Subscribe()
	defer unsubscribe()
	go func() {
		for ev := range events {
			if ev.Session != nil && ev.Session.Identity != nil {
				tracker.Observe(ev.Session.Identity.ID)
			}
		}
	}()

	// Session-state watcher: follows auth events and logs verdict
	// transitions for the process surface. Redirects are advisory here;
	// per-request enforcement lives in the guard middleware.
	watcher := guard.NewWatcher(checker, provider, guard.Config{
		SettleDelay: cfg.SettleDelay,
		GraceDelay:  cfg.GraceDelay,
		Redirect: func(route string) {
			log.Info("session watcher redirect", "route", route)
		},
	}, log)
	watcher.Start(ctx)
	defer watcher.Stop()

	docs := newDocumentService(redisClient, recorder, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Metrics:       m,
		Security:      config.DefaultSecurity(),
		TokenChecker:  provider,
		AccessChecker: checker,
		Observer:      tracker,
		Identity:      identityhandler.New(provider, resolver, recorder, log),
		Profile:       profilehandler.New(profiles, log),
		Activity:      activityhandler.New(recorder, log),
		Documents:     documentshandler.New(docs, log),
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr, "auth_mode", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// profileStoreIface is the union the wiring needs: the profile service's
// store plus the activity recorder's reader. Both concrete stores satisfy it.
type profileStoreIface interface {
	profilesvc.Store
	activity.ProfileReader
}

// newDocumentService picks Redis-backed collections when Redis is
// configured, in-memory ones otherwise.
func newDocumentService(redisClient *platformredis.Client, recorder *activity.Recorder, log *slog.Logger) *documents.Service {
	if redisClient != nil {
		return documents.NewService(
			documentsstore.NewRedisCollection[documents.Project](redisClient.Client, "projects"),
			documentsstore.NewRedisCollection[documents.Quotation](redisClient.Client, "quotations"),
			documentsstore.NewRedisCollection[documents.PurchaseOrder](redisClient.Client, "purchase_orders"),
			documentsstore.NewRedisCollection[documents.Party](redisClient.Client, "parties"),
			recorder,
			log,
		)
	}
	return documents.NewService(
		documentsstore.NewMemoryCollection[documents.Project](),
		documentsstore.NewMemoryCollection[documents.Quotation](),
		documentsstore.NewMemoryCollection[documents.PurchaseOrder](),
		documentsstore.NewMemoryCollection[documents.Party](),
		recorder,
		log,
	)
}
