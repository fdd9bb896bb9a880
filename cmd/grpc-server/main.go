package main

import (
	"context"
	"net"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"google.golang.org/grpc"

	"shinydex/internal/auth"
	fxmodules "shinydex/internal/fx"
	"shinydex/internal/grpcserver"
	"shinydex/pkg/utils"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(lc fx.Lifecycle, cfg *utils.Config, svc *grpcserver.Server, verifier auth.Verifier, logger zerolog.Logger) {
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(auth.UnaryInterceptor(verifier)))
	grpcserver.Register(grpcServer, svc)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			listener, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				return err
			}
			go func() {
				logger.Info().Str("addr", cfg.GRPCAddr).Msg("grpc server listening")
				if err := grpcServer.Serve(listener); err != nil {
					logger.Error().Err(err).Msg("grpc server stopped")
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			grpcServer.GracefulStop()
			return nil
		},
	})
}
