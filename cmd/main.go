package main

import (
	"context"

	"github.com/catchup-feed/edge-gateway/internal/client"
	"github.com/catchup-feed/edge-gateway/internal/csrf"
	"github.com/catchup-feed/edge-gateway/internal/gate"
	"github.com/catchup-feed/edge-gateway/internal/storage"
	memorystore "github.com/catchup-feed/edge-gateway/internal/storage/memory"
	redisstore "github.com/catchup-feed/edge-gateway/internal/storage/redis"
	"github.com/catchup-feed/edge-gateway/internal/token"
	"github.com/catchup-feed/edge-gateway/internal/util"
)

func main() {
	ctx := context.Background()
	logger := util.NewZapLogger()

	gateCfg := util.NewGateConfig()
	clientCfg := util.NewClientConfig()

	var kv storage.KV
	var readyChecks []gate.ReadyCheck

	if rc := util.NewRedisConfig(); rc.Addr != "" {
		redisClient, cleanup := util.NewRedisClient(logger, rc)
		defer cleanup()

		kv = redisstore.NewKV(redisClient, 0)
		readyChecks = append(readyChecks, gate.ReadyCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	} else {
		logger.Info("REDIS_ADDR not set, using in-memory token storage")
		kv = memorystore.NewKV(logger)
	}

	tokens := token.NewStore(kv, logger)
	csrfManager := csrf.NewManager(kv, logger)

	refresher := client.NewTokenRefresher(clientCfg.BaseURL, clientCfg.Timeout)
	apiClient := client.New(client.Config{
		BaseURL:        clientCfg.BaseURL,
		Timeout:        clientCfg.Timeout,
		RefreshEnabled: clientCfg.RefreshEnabled,
		RefreshAhead:   clientCfg.RefreshAhead,
	}, tokens, csrfManager, refresher, kv, logger)

	readyChecks = append(readyChecks, gate.ReadyCheck{Name: "backend_api", Check: apiClient.Health})

	issuer := csrf.NewIssuer(gateCfg.SecureCookies, gateCfg.CSRFCookieTTL)
	edgeGate := gate.New(issuer, logger)

	server := gate.NewServer(edgeGate, gateCfg.UpstreamURL, util.NewServerConfig(), util.NewRateLimiterConfig(), readyChecks, logger)
	server.Run(ctx)
}
