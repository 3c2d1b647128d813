package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/iliyamo/club-table-reservation/internal/config"
	"github.com/iliyamo/club-table-reservation/internal/database"
	"github.com/iliyamo/club-table-reservation/internal/handler"
	"github.com/iliyamo/club-table-reservation/internal/middleware"
	"github.com/iliyamo/club-table-reservation/internal/payment"
	"github.com/iliyamo/club-table-reservation/internal/queue"
	"github.com/iliyamo/club-table-reservation/internal/repository"
	"github.com/iliyamo/club-table-reservation/internal/router"
	"github.com/iliyamo/club-table-reservation/internal/service"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the queue consumers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return fmt.Errorf("db open: %w", err)
			}
			defer db.Close()

			if migrateUp {
				applied, err := database.Migrate(ctx, db)
				if err != nil {
					return err
				}
				for _, v := range applied {
					log.Printf("migrate: applied %s", v)
				}
			}

			// Redis is optional; nil disables rate limiting, the catalogue
			// cache and the table lock.
			rdb := config.NewRedisClient()
			if rdb != nil {
				defer rdb.Close()
			}

			users := repository.NewUserRepo(db)
			tables := repository.NewTableRepo(db)
			reservations := repository.NewReservationRepo(db)
			payments := repository.NewPaymentRepo(db)
			tickets := repository.NewTicketRepo(db)

			if cfg.StripeSecretKey == "" {
				log.Printf("serve: STRIPE_SECRET_KEY is empty, payment intents will fail")
			}
			deps := service.Deps{
				Tables:       tables,
				Reservations: reservations,
				Payments:     payments,
				Tickets:      tickets,
				Users:        users,
				Gateway:      payment.NewStripeGateway(cfg.StripeSecretKey),
				Events:       service.NewAMQPPublisher(cfg.AMQPURL),
			}
			if cfg.Guard && rdb != nil {
				deps.Lock = service.NewRedisTableLock(rdb, cfg.GuardTTL)
			}
			reservationSvc := service.NewReservationService(deps, service.Options{
				StoreTimeout:   cfg.StoreTimeout,
				GatewayTimeout: cfg.GatewayTimeout,
				Currency:       cfg.Currency,
				Guard:          cfg.Guard,
			})
			tableSvc := service.NewTableService(tables, cfg.StoreTimeout)
			paymentSvc := service.NewPaymentService(payments, cfg.StoreTimeout)

			if cfg.ConsumePayments {
				go queue.StartPaymentStatusConsumer(ctx, cfg.AMQPURL, paymentSvc)
			}
			if cfg.LogReservations {
				go queue.StartReservationLogConsumer(ctx, cfg.AMQPURL, cfg.ReservationLog)
			}

			e := echo.New()
			e.HideBanner = true
			e.HTTPErrorHandler = middleware.ErrorHandler
			e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
				LogStatus:  true,
				LogURI:     true,
				LogMethod:  true,
				LogLatency: true,
				LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
					log.Printf("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
					return nil
				},
			}))
			e.Use(echoMw.Recover())

			h := router.Handlers{
				Health:       handler.Health(db),
				Auth:         handler.NewAuthHandler(cfg, users),
				Tables:       handler.NewTableHandler(tableSvc),
				Reservations: handler.NewReservationHandler(reservationSvc),
				Payments:     handler.NewPaymentHandler(paymentSvc),
				Limiter:      middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
				Cache:        middleware.NewCatalogCache(config.LoadCacheConfig(), rdb),
			}
			router.RegisterRoutes(e, h)
			router.RegisterAPI(e, h, cfg.JWTSecret)

			addr := ":" + cfg.Port
			errc := make(chan error, 1)
			go func() {
				log.Printf("listening on %s (env=%s)", addr, cfg.Env)
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			log.Printf("shutting down")
			return e.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
