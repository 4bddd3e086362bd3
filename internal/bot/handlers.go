package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"tg-compress-bot/internal/conversation"
	"tg-compress-bot/internal/database"
	"tg-compress-bot/internal/worker"
	"tg-compress-bot/pkg/utilities"
)

const defaultVideoName = "video.mp4"

// HandleUpdate обрабатывает все входящие апдейты
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	if !b.IsAllowed(int64(msg.From.ID)) {
		b.logger.Warn().Int64("user_id", int64(msg.From.ID)).Msg("Rejected user outside whitelist")
		b.SendMessage(msg.Chat.ID, MsgAccessDenied)
		return
	}

	switch {
	case msg.IsCommand():
		b.HandleCommand(ctx, msg)
	case msg.Video != nil || msg.Document != nil:
		b.HandleMediaMessage(ctx, msg)
	case msg.Text != "":
		b.HandleTextMessage(ctx, msg)
	}
}

// HandleCommand обрабатывает команды
func (b *Bot) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	b.logger.Debug().Int64("user_id", int64(msg.From.ID)).Str("command", msg.Command()).Msg("Command received")

	switch msg.Command() {
	case "start":
		b.HandleStartCommand(ctx, msg)
	case "set_key":
		b.HandleSetKeyCommand(msg)
	case "my_files":
		b.HandleMyFilesCommand(ctx, msg)
	case "delete_file":
		b.HandleDeleteFileCommand(ctx, msg)
	case "cancel":
		b.states.Reset(int64(msg.From.ID))
		b.SendMessage(msg.Chat.ID, MsgCancelled)
	case "help":
		b.SendMessage(msg.Chat.ID, MsgHelp)
	default:
		b.SendMessage(msg.Chat.ID, MsgUnknownCommand)
	}
}

func (b *Bot) HandleStartCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := int64(msg.From.ID)

	_, found, err := b.credentials.GetCredential(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load api key")
		b.SendMessage(msg.Chat.ID, MsgInternalError)
		return
	}

	if found {
		b.SendMenu(msg.Chat.ID, MsgWelcomeBack)
		return
	}

	b.SendMessage(msg.Chat.ID, MsgOnboarding)
	b.states.Set(userID, conversation.StateAwaitingAPIKey)
}

func (b *Bot) HandleSetKeyCommand(msg *tgbotapi.Message) {
	b.SendMessage(msg.Chat.ID, MsgSendNewKey)
	b.states.Set(int64(msg.From.ID), conversation.StateAwaitingAPIKey)
}

func (b *Bot) HandleMyFilesCommand(ctx context.Context, msg *tgbotapi.Message) {
	list, ok := b.renderHistory(ctx, msg)
	if !ok {
		return
	}
	b.SendMessage(msg.Chat.ID, list)
}

func (b *Bot) HandleDeleteFileCommand(ctx context.Context, msg *tgbotapi.Message) {
	list, ok := b.renderHistory(ctx, msg)
	if !ok {
		return
	}
	b.SendMessage(msg.Chat.ID, list+MsgAskFileID)
	b.states.Set(int64(msg.From.ID), conversation.StateAwaitingFileToDelete)
}

// renderHistory возвращает список файлов; ok=false если отвечать больше нечего
func (b *Bot) renderHistory(ctx context.Context, msg *tgbotapi.Message) (string, bool) {
	userID := int64(msg.From.ID)

	records, err := b.history.ListJobRecords(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to list history")
		b.SendMessage(msg.Chat.ID, MsgInternalError)
		return "", false
	}
	if len(records) == 0 {
		b.SendMessage(msg.Chat.ID, MsgNoFiles)
		return "", false
	}

	var response strings.Builder
	response.WriteString(MsgFilesHeader)
	for _, r := range records {
		response.WriteString(fmt.Sprintf(MsgFileEntry, r.ID, r.OriginalName, utilities.LastSegment(r.OutputPath), r.CreatedAt))
	}
	return response.String(), true
}

// HandleTextMessage трактует текст по текущему состоянию диалога
func (b *Bot) HandleTextMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := int64(msg.From.ID)

	switch b.states.Get(userID) {
	case conversation.StateAwaitingAPIKey:
		b.handleAPIKey(ctx, msg)
	case conversation.StateAwaitingFileToDelete:
		b.handleFileToDelete(ctx, msg)
	}
}

func (b *Bot) handleAPIKey(ctx context.Context, msg *tgbotapi.Message) {
	userID := int64(msg.From.ID)
	key, err := conversation.ParseAPIKey(msg.Text)
	if err != nil {
		b.SendMessage(msg.Chat.ID, MsgInvalidKey)
		return
	}

	if err := b.credentials.SetCredential(ctx, userID, key); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to save api key")
		b.SendMessage(msg.Chat.ID, MsgInternalError)
		return
	}

	b.states.Reset(userID)
	b.logger.Info().Int64("user_id", userID).Msg("API key saved")
	b.SendMenu(msg.Chat.ID, MsgKeySaved)
}

func (b *Bot) handleFileToDelete(ctx context.Context, msg *tgbotapi.Message) {
	userID := int64(msg.From.ID)

	id, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
	if err != nil {
		b.SendMessage(msg.Chat.ID, MsgNotANumber)
		return
	}

	b.states.Reset(userID)

	rec, err := b.history.DeleteJobRecord(ctx, userID, id)
	if err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			b.SendMessage(msg.Chat.ID, MsgInvalidFileID)
			return
		}
		b.logger.Error().Err(err).Int64("user_id", userID).Int64("record_id", id).Msg("Failed to delete record")
		b.SendMessage(msg.Chat.ID, MsgInternalError)
		return
	}

	if err := os.Remove(rec.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		b.logger.Warn().Err(err).Str("path", rec.OutputPath).Msg("Failed to remove stored file")
	}

	b.SendMessage(msg.Chat.ID, fmt.Sprintf(MsgFileDeleted, id))
}

// HandleMediaMessage проверяет вложение и ставит сжатие в пул
func (b *Bot) HandleMediaMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := int64(msg.From.ID)

	apiKey, found, err := b.credentials.GetCredential(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load api key")
		b.SendMessage(msg.Chat.ID, MsgInternalError)
		return
	}
	if !found {
		b.SendMessage(msg.Chat.ID, MsgNoKey)
		return
	}

	job, ok := b.newJob(msg, apiKey)
	if !ok {
		return
	}

	if err := b.pool.Submit(func(ctx context.Context) { b.processVideo(ctx, job) }); err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			b.logger.Warn().Int64("user_id", userID).Msg("Worker queue is full")
		}
		b.SendMessage(msg.Chat.ID, MsgBusy)
		return
	}

	b.logger.Info().Str("job_id", job.ID).Int64("user_id", userID).Str("file", job.FileName).Msg("Compression job queued")
}
