package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"shinydex/internal/auth"
	"shinydex/internal/captures"
	"shinydex/internal/catalog"
	"shinydex/internal/constants"
	"shinydex/internal/dexsync"
	"shinydex/internal/events"
	fxmodules "shinydex/internal/fx"
	"shinydex/internal/grpcserver"
	"shinydex/internal/middleware"
	"shinydex/pkg/utils"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

type deps struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *utils.Config
	DB        *sql.DB
	Logger    zerolog.Logger
	Hub       *events.Hub
	Tokens    auth.TokenService
	Users     *auth.Repo
	Verifier  auth.Verifier
	Catalog   *catalog.Service
	Ledger    *captures.Ledger
	Runner    *dexsync.Runner
	RPC       *grpcserver.Server
}

func newRouter(d deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/ws", events.WSHandler(d.Hub, d.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := d.Hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), constants.ReadyTimeout)
		defer cancel()

		if err := d.DB.PingContext(ctx); err != nil {
			d.Logger.Error().Err(err).Msg("readiness ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db":          "unavailable",
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
			"sync":        d.Runner.Status(),
		})
	})

	// catalog (public)
	catalog.NewHandler(d.Catalog).RegisterRoutes(router.Group("/pokemon"))

	// auth
	auth.NewHandler(d.Users, d.Tokens, d.Logger).RegisterRoutes(router.Group("/auth"))

	// protected
	required := auth.AuthMiddleware(d.Verifier)
	captures.NewHandler(d.Ledger, d.Catalog).RegisterRoutes(router.Group("/captures", required))
	dexsync.NewHandler(d.Runner).RegisterRoutes(router.Group("/sync", required))

	return router
}

func runServer(d deps) {
	logger := d.Logger
	router := newRouter(d)

	mux := http.NewServeMux()
	rpcPath, rpcHandler := grpcserver.NewConnectHandler(d.RPC,
		connect.WithInterceptors(auth.ConnectInterceptor(d.Verifier)),
	)
	mux.Handle(rpcPath, rpcHandler)
	mux.Handle("/", router)

	c := cors.New(cors.Options{
		AllowedOrigins:   d.Config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              d.Config.HTTPAddr,
		Handler:           middleware.RequestID(logger)(c.Handler(mux)),
		ReadHeaderTimeout: constants.RequestTimeout,
	}

	tcpCtx, stopTCP := context.WithCancel(context.Background())
	tcpSrv := events.NewServer(d.Config.TCPAddr, d.Hub, logger)

	d.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := tcpSrv.Run(tcpCtx); err != nil {
					logger.Error().Err(err).Msg("tcp event stream failed")
				}
			}()
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("http api listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal().Err(err).Msg("http server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down servers")
			stopTCP()

			shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("http shutdown failed")
				return err
			}
			logger.Info().Msg("servers stopped")
			return nil
		},
	})
}
