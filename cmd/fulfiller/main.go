package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/swiftroute/delivery-gateway/internal/config"
	"github.com/swiftroute/delivery-gateway/internal/fulfiller"
	gateway "github.com/swiftroute/delivery-gateway/internal/gateways"
	"github.com/swiftroute/delivery-gateway/internal/repository"
	"github.com/swiftroute/delivery-gateway/pkg/logger"
	"github.com/swiftroute/delivery-gateway/pkg/pg"
	"github.com/swiftroute/delivery-gateway/pkg/prom"
	"github.com/swiftroute/delivery-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill, os.Interrupt, syscall.SIGTERM)

	shopifyClient := gateway.NewShopifyClient(gateway.ShopifyConfig{
		APIVersion: config.Get().ShopifyAPIVersion,
		Timeout:    config.Get().ShopifyRequestTimeout,
		Scheme:     config.Get().ShopifyScheme,
	})

	orderRepo := repository.NewOrderRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)

	idempotencyConfig := fulfiller.DefaultIdempotencyConfig()
	idempotencyConfig.MaxRetries = config.Get().QueueMaxRetries
	idempotencyService := fulfiller.NewIdempotencyService(redisAdap, idempotencyConfig)

	service, err := fulfiller.NewService(redisAdap)
	if err != nil {
		logger.Error("failed to create fulfiller service", "error", err)
		return
	}
	service.RegisterProcessor(fulfiller.NewFulfillmentTaskProcessor(orderRepo, connectionRepo, shopifyClient, idempotencyService))

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	go func() {
		err := service.Start()
		if err != nil {
			logger.Error("failed to start fulfiller", "error", err)
		}
	}()

	select {
	case <-c:
		service.Stop()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
