package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/conf/v3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irsalhamdi/e-commerce-store/api"
	"github.com/irsalhamdi/e-commerce-store/cache"
	"github.com/irsalhamdi/e-commerce-store/config"
	"github.com/irsalhamdi/e-commerce-store/core/cart"
	"github.com/irsalhamdi/e-commerce-store/core/product"
	"github.com/irsalhamdi/e-commerce-store/core/user"
	"github.com/irsalhamdi/e-commerce-store/database"
	"github.com/irsalhamdi/e-commerce-store/rate"
)

var build = "develop"

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	const prefix = "SHOP"
	cfg := config.Config{
		Version: conf.Version{
			Build: build,
			Desc:  "online store cart service",
		},
	}
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	logger.Infof("starting server: build[%s]", build)
	defer logger.Info("shutdown complete")

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DB.ConnectTimeout)
	defer cancel()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer func() {
		if err := database.Close(context.Background(), db); err != nil {
			logger.WithError(err).Error("closing db connection")
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate db: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}

	lim := rate.NewLimiter(cfg.Rate.Burst, cfg.Rate.Expiry, rate.Every(cfg.Rate.Interval))
	defer lim.Close()

	products := product.NewStore(db)

	svc := cart.NewService(cart.Config{
		Users:    user.NewStore(db),
		Products: products,
		Items:    cart.NewStore(db),
		Counts:   cache.NewCounts(rdb, cfg.Redis.CountTTL),
		Log:      logger,
	})

	mux := api.APIMux(api.APIConfig{
		CorsOrigin: cfg.Cors.Origin,
		Log:        logger,
		Cart:       svc,
		Products:   products,
		Limiter:    lim,
	})

	srv := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}
