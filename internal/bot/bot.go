package bot

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/rs/zerolog"

	"tg-compress-bot/internal/compressor"
	"tg-compress-bot/internal/config"
	"tg-compress-bot/internal/conversation"
	"tg-compress-bot/internal/database"
	"tg-compress-bot/internal/freeconvert"
	"tg-compress-bot/internal/models"
	"tg-compress-bot/internal/worker"
)

type CredentialStore interface {
	SetCredential(ctx context.Context, userID int64, apiKey string) error
	GetCredential(ctx context.Context, userID int64) (string, bool, error)
}

type HistoryStore interface {
	AppendJobRecord(ctx context.Context, userID int64, originalName, outputPath string) (int64, error)
	ListJobRecords(ctx context.Context, userID int64) ([]models.JobRecord, error)
	DeleteJobRecord(ctx context.Context, userID, id int64) (models.JobRecord, error)
}

// Workflow сжатие одного файла
type Workflow interface {
	Run(ctx context.Context, apiKey, inputPath string, progress func(compressor.Stage)) (compressor.Result, error)
}

type Deps struct {
	Transport   Transport
	Credentials CredentialStore
	History     HistoryStore
	States      *conversation.Store
	Pool        *worker.Pool
	Workflow    Workflow
	Logger      zerolog.Logger
}

type Options struct {
	MaxFileSize    int64
	DownloadDir    string
	StorageDir     string
	KeepOutputs    bool
	AllowedUserIDs []int64
}

type Bot struct {
	transport   Transport
	credentials CredentialStore
	history     HistoryStore
	states      *conversation.Store
	pool        *worker.Pool
	workflow    Workflow
	logger      zerolog.Logger
	opts        Options
}

func New(deps Deps, opts Options) *Bot {
	if deps.States == nil {
		deps.States = conversation.NewStore()
	}
	return &Bot{
		transport:   deps.Transport,
		credentials: deps.Credentials,
		history:     deps.History,
		states:      deps.States,
		pool:        deps.Pool,
		workflow:    deps.Workflow,
		logger:      deps.Logger,
		opts:        opts,
	}
}

// Start собирает зависимости и обрабатывает апдейты до отмены ctx
func Start(ctx context.Context, cfg *config.Config, db *sql.DB, logger zerolog.Logger) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create bot api: %w", err)
	}
	botAPI.Debug = cfg.Telegram.Debug

	logger.Info().
		Str("username", botAPI.Self.UserName).
		Str("app_id", cfg.Telegram.AppID).
		Msg("Authorized on Telegram")

	httpClient := &http.Client{Timeout: cfg.FreeConvert.HTTPTimeout}

	workflow := compressor.New(
		freeconvert.NewClient(cfg.FreeConvert.BaseURL, httpClient),
		compressor.Options{
			PollInterval: cfg.FreeConvert.PollInterval,
			Timeout:      cfg.FreeConvert.JobTimeout,
			TempDir:      cfg.Storage.DownloadDir,
		},
		logger.With().Str("component", "compressor").Logger(),
	)

	pool := worker.NewPool(cfg.Worker.Workers, cfg.Worker.QueueSize, logger.With().Str("component", "pool").Logger())
	pool.Start(ctx)
	defer pool.Stop()

	bot := New(Deps{
		Transport:   NewTelegramTransport(botAPI, httpClient),
		Credentials: database.NewCredentialRepository(db),
		History:     database.NewHistoryRepository(db),
		States:      conversation.NewStore(),
		Pool:        pool,
		Workflow:    workflow,
		Logger:      logger,
	}, Options{
		MaxFileSize:    cfg.Worker.MaxFileSize,
		DownloadDir:    cfg.Storage.DownloadDir,
		StorageDir:     cfg.Storage.StorageDir,
		KeepOutputs:    cfg.Storage.KeepOutputs,
		AllowedUserIDs: cfg.Telegram.AllowedUserIDs,
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := botAPI.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("failed to get updates: %w", err)
	}

	logger.Info().Msg("Bot started")
	bot.Serve(ctx, updates)
	botAPI.StopReceivingUpdates()
	logger.Info().Msg("Bot stopped, waiting for running jobs")

	return nil
}

// Serve читает апдейты в одной горутине до отмены ctx или закрытия канала
func (b *Bot) Serve(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}
