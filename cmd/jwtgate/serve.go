package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	jwtgate "github.com/labshare/go-jwt-gate"
	"github.com/labshare/go-jwt-gate/config"
	"github.com/labshare/go-jwt-gate/jwks"
	"github.com/labshare/go-jwt-gate/jwks/jwksredis"
	"github.com/labshare/go-jwt-gate/operation"
)

const (
	OperationsKey = "operations"
	RedisAddrKey  = "redis.addr"
)

// defaultOperations protect the demo routes when no operations file is found.
var defaultOperations = []operation.Entry{
	{ID: "GET /whoAmI"},
	{ID: "GET /users", Scopes: []string{"read:users"}},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the protected API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := config.FromEnv()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		entries, err := loadOperations()
		if err != nil {
			return fmt.Errorf("loading operations: %w", err)
		}

		registry, err := operation.NewRegistry(operation.WithEntries(entries))
		if err != nil {
			return fmt.Errorf("building operation registry: %w", err)
		}
		for _, id := range registry.IDs() {
			log.WithField("operation", id).Info("operation requires authentication")
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := jwtgate.NewPrometheusMetrics(reg)
		logger := jwtgate.NewLogrusLogger(log)

		providerOpts := []jwks.CachingProviderOption{
			jwks.WithLogger(logger),
			jwks.WithMetrics(metrics),
		}
		if redisAddr := viper.GetString(RedisAddrKey); redisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: redisAddr})
			defer client.Close()
			providerOpts = append(providerOpts, jwks.WithStore(jwksredis.New(client)))
			log.WithField("addr", redisAddr).Info("sharing key sets through redis")
		}

		v, err := cfg.NewValidator(providerOpts...)
		if err != nil {
			return fmt.Errorf("building validator: %w", err)
		}

		handler, err := newRouter(routerConfig{
			validator: v,
			registry:  registry,
			logger:    logger,
			metrics:   metrics,
			gatherer:  reg,
		})
		if err != nil {
			return fmt.Errorf("building router: %w", err)
		}

		server := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.WithField("addr", addr).Info("starting server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Fatal("server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info("server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	serveCmd.Flags().String("redis-addr", "", "redis address for sharing key sets between replicas")
	_ = viper.BindPFlag(RedisAddrKey, serveCmd.Flags().Lookup("redis-addr"))
}

// loadOperations reads the operation table from the operations file:
//
//	operations:
//	  - id: GET /whoAmI
//	  - id: GET /users
//	    scopes: [read:users]
func loadOperations() ([]operation.Entry, error) {
	if !viper.IsSet(OperationsKey) {
		return defaultOperations, nil
	}

	var entries []operation.Entry
	if err := viper.UnmarshalKey(OperationsKey, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
