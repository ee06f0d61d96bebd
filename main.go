package main

import (
	"os"
	"os/signal"
	"syscall"

	"haldor/internal/config"
	"haldor/internal/logger"
	"haldor/internal/services"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	app, err := newApplication(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer app.Close()

	// Downstream work for paid orders runs off the queue, not the request.
	if app.mq != nil {
		err := app.mq.Consume(func(msg amqp.Delivery) error {
			return services.HandleOrderPaid(msg.Body)
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to start order event consumer")
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.AppPort).Msg("starting server")
		if err := app.fiber.Listen(cfg.AppPort); err != nil {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-quit
	log.Info().Msg("shutting down server")
	if err := app.fiber.Shutdown(); err != nil {
		log.Error().Err(err).Msg("error during fiber shutdown")
	}
	log.Info().Msg("server gracefully stopped")
}
