package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"reservation-booking-api/internal/account"
	"reservation-booking-api/internal/booking"
	"reservation-booking-api/internal/config"
	"reservation-booking-api/internal/handler"
	"reservation-booking-api/internal/httpapi"
	"reservation-booking-api/internal/jobs"
	"reservation-booking-api/internal/ledger"
	"reservation-booking-api/internal/logging"
	"reservation-booking-api/internal/middleware"
	"reservation-booking-api/internal/store"
	"reservation-booking-api/internal/store/memstore"
	"reservation-booking-api/internal/store/postgres"
	"reservation-booking-api/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Fatal(err)
	}
}

// run serves until SIGINT or SIGTERM. Every resource it opens is released
// before it returns.
func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	accounts := account.NewService(st, validation.NewValidator(), account.Config{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, log)
	bookings := booking.NewService(st, ledger.New(cfg.VacanciesPerDay), log,
		booking.WithLocation(cfg.Location),
		booking.WithMaxDays(cfg.MaxReservationDays),
	)

	sched := jobs.NewScheduler(st, log)
	if err := sched.Register(cfg.TokenPruneSchedule); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}

	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rl.Run(ctx)

	// grpc server
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.RateLimit(rl, handler.LimitedMethods...),
			middleware.Auth(cfg.JWTSecret, handler.OpenMethods...),
		),
	)
	handler.RegisterReservationServiceServer(srv, handler.New(accounts, bookings, log))

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	go func() {
		log.Infof("grpc on :%s", cfg.GRPCPort)
		if err := srv.Serve(lis); err != nil {
			log.WithError(err).Error("grpc stopped")
		}
	}()

	// REST api
	accessLog := log.WriterLevel(logrus.InfoLevel)
	defer accessLog.Close()
	httpSrv := &http.Server{
		Addr:              ":" + cfg.WebPort,
		Handler:           httpapi.NewServer(accounts, bookings, st, rl, log).Handler(accessLog),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("http on :%s", cfg.WebPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http stopped")
		}
	}()

	sched.Start()

	// graceful shutdown
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	srv.GracefulStop()
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (store.Store, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memstore.New(), nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("connected to postgres")

	st := postgres.New(pool)
	if err := st.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("migration applied")
	return st, nil
}
