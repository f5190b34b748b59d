package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"kickme/internal/bot"
	"kickme/internal/config"
	"kickme/internal/logger"
)

func main() {
	// Configuration
	cfg, err := config.New(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// Logging, discordgo included
	zl, err := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal().Err(err).Msg("logger")
	}
	log.Logger = zl
	logger.RouteDiscordgo(zl)
	cfg.Log(log.Info())

	// Create session
	session, err := discordgo.New(cfg.AuthToken())
	if err != nil {
		log.Fatal().Err(err).Msg("could not create discord session")
	}
	session.LogLevel = logger.DiscordgoLevel(zl.GetLevel())

	// The bot cannot compare positions without knowing who it is
	self, err := session.User("@me")
	if err != nil {
		log.Fatal().Err(err).Msg("could not fetch the bot user")
	}
	log.Info().Str("self", self.ID).Str("name", self.Username).Msg("Logged in")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kickme := bot.New(self.ID, session, session, bot.Options{
		EventBuffer: cfg.EventBuffer,
		SlowKick:    cfg.SlowKick,
	}, zl)
	if err := kickme.Run(ctx, session); err != nil {
		log.Fatal().Err(err).Msg("gateway")
	}
	log.Info().Msg("Bye")
}
