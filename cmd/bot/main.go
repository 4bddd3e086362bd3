package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tg-compress-bot/internal/bot"
	"tg-compress-bot/internal/config"
	"tg-compress-bot/internal/database"
	"tg-compress-bot/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Инициализация БД
	db, err := database.InitDB(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Database initialization failed")
	}
	defer db.Close()

	// Запуск бота
	if err := bot.Start(ctx, cfg, db, log); err != nil {
		log.Error().Err(err).Msg("Bot failed")
		db.Close()
		os.Exit(1)
	}
}
