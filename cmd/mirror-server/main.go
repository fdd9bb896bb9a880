package main

import (
	"flag"
	"os"

	"github.com/gin-gonic/gin"

	"shinydex/internal/logger"
	"shinydex/internal/mirror"
)

func main() {
	var (
		dataPath = flag.String("data", mirror.DefaultPath, "mirror JSON written by export-mirror")
		addr     = flag.String("addr", ":9000", "listen address")
	)
	flag.Parse()

	log := logger.Console(os.Getenv("LOG_LEVEL"))

	byID, err := mirror.Load(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load mirror")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	mirror.NewHandler(byID, log).RegisterRoutes(r)

	log.Info().Str("addr", *addr).Int("pokemon", len(byID)).Msg("mirror server listening")
	if err := r.Run(*addr); err != nil {
		log.Fatal().Err(err).Msg("mirror server stopped")
	}
}
