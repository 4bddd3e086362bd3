package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-compress-bot/internal/compressor"
	"tg-compress-bot/internal/freeconvert"
	"tg-compress-bot/pkg/utilities"
)

type videoJob struct {
	ID       string
	UserID   int64
	ChatID   int64
	APIKey   string
	FileID   string
	FileName string
}

// newJob проверяет вложение до любых сетевых вызовов
func (b *Bot) newJob(msg *tgbotapi.Message, apiKey string) (videoJob, bool) {
	job := videoJob{
		ID:     uuid.NewString(),
		UserID: int64(msg.From.ID),
		ChatID: msg.Chat.ID,
		APIKey: apiKey,
	}

	var size int64
	if msg.Document != nil {
		if !strings.Contains(msg.Document.MimeType, "video") {
			b.SendMessage(msg.Chat.ID, MsgInvalidVideo)
			return job, false
		}
		size = int64(msg.Document.FileSize)
		job.FileID = msg.Document.FileID
		job.FileName = msg.Document.FileName
	} else {
		size = int64(msg.Video.FileSize)
		job.FileID = msg.Video.FileID
	}
	if job.FileName == "" {
		job.FileName = defaultVideoName
	}

	if size > b.opts.MaxFileSize {
		b.SendMessage(msg.Chat.ID, fmt.Sprintf(MsgFileTooLarge, utilities.HumanSize(b.opts.MaxFileSize)))
		return job, false
	}

	return job, true
}

// processVideo выполняется в воркере; временные файлы удаляются на любом выходе
func (b *Bot) processVideo(ctx context.Context, job videoJob) {
	log := b.logger.With().Str("job_id", job.ID).Int64("user_id", job.UserID).Logger()

	status := b.newStatus(job.ChatID, log)
	status.set(MsgProcessing)

	ext := utilities.FileExt(job.FileName)
	if ext == "" {
		ext = "mp4"
	}
	inputPath := filepath.Join(b.opts.DownloadDir, job.ID+"."+ext)
	var outputPath string

	defer func() {
		removeQuietly(inputPath, log)
		if outputPath != "" {
			removeQuietly(outputPath, log)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Msg("Compression job panicked")
			status.set(fmt.Sprintf(MsgErrorOccurred, r))
		}
	}()

	if err := b.transport.DownloadFile(ctx, job.FileID, inputPath); err != nil {
		log.Error().Err(err).Msg("Failed to download source from Telegram")
		status.set(fmt.Sprintf(MsgErrorOccurred, err))
		return
	}

	result, err := b.workflow.Run(ctx, job.APIKey, inputPath, func(stage compressor.Stage) {
		switch stage {
		case compressor.StageUploading:
			status.set(MsgUploading)
		case compressor.StageCompressing:
			status.set(MsgCompressing)
		case compressor.StageDownloading:
			status.set(MsgDownloading)
		}
	})
	outputPath = result.OutputPath
	if err != nil {
		log.Error().Err(err).Msg("Compression failed")
		status.set(failureText(err))
		return
	}

	status.set(MsgComplete)
	if err := b.transport.SendVideo(job.ChatID, outputPath, fmt.Sprintf(MsgCaption, job.FileName)); err != nil {
		log.Error().Err(err).Msg("Failed to send compressed video")
		status.set(fmt.Sprintf(MsgErrorOccurred, err))
		return
	}

	storedPath := outputPath
	if b.opts.KeepOutputs {
		kept, err := b.keepOutput(job, outputPath, result.RemoteName)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to keep compressed file")
		} else {
			storedPath = kept
			outputPath = ""
		}
	}

	recordID, err := b.history.AppendJobRecord(ctx, job.UserID, job.FileName, storedPath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to save history record")
		status.set(MsgHistoryFailed)
		return
	}
	log.Info().Int64("record_id", recordID).Msg("Compression job finished")
}

// failureText сообщение пользователю по виду ошибки
func failureText(err error) string {
	var failed *compressor.TaskFailedError
	var apiErr *freeconvert.APIError

	switch {
	case errors.As(err, &failed):
		return fmt.Sprintf(MsgCompressFailed, failed.Payload)
	case errors.Is(err, compressor.ErrTimeout):
		return MsgTimeout
	case errors.As(err, &apiErr) && apiErr.Op == "download":
		return fmt.Sprintf(MsgDownloadFailed, apiErr.StatusCode)
	case errors.As(err, &apiErr):
		return fmt.Sprintf(MsgServiceError, apiErr.StatusCode, apiErr.Body)
	default:
		return fmt.Sprintf(MsgErrorOccurred, err)
	}
}

// keepOutput переносит результат в STORAGE_DIR/<user_id>/
func (b *Bot) keepOutput(job videoJob, outputPath, remoteName string) (string, error) {
	dir := filepath.Join(b.opts.StorageDir, strconv.FormatInt(job.UserID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	name := remoteName
	if name == "" {
		name = filepath.Base(outputPath)
	}
	dest := filepath.Join(dir, job.ID+"_"+filepath.Base(name))
	if err := utilities.MoveFile(outputPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func removeQuietly(path string, log zerolog.Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).Msg("Failed to remove temp file")
	}
}

// statusMessage одно сообщение о ходе работы, которое редактируется
type statusMessage struct {
	b         *Bot
	chatID    int64
	messageID int
	last      string
	log       zerolog.Logger
}

func (b *Bot) newStatus(chatID int64, log zerolog.Logger) *statusMessage {
	return &statusMessage{b: b, chatID: chatID, log: log}
}

func (s *statusMessage) set(text string) {
	if text == s.last {
		return
	}
	s.last = text

	if s.messageID == 0 {
		id, err := s.b.transport.SendMessage(s.chatID, text)
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to send status message")
			return
		}
		s.messageID = id
		return
	}

	if err := s.b.transport.EditMessage(s.chatID, s.messageID, text); err != nil {
		s.log.Warn().Err(err).Msg("Failed to edit status message")
	}
}

// SendMessage отправляет текст, ошибки только логируются
func (b *Bot) SendMessage(chatID int64, text string) {
	if _, err := b.transport.SendMessage(chatID, text); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) SendMenu(chatID int64, text string) {
	if err := b.transport.SendMenu(chatID, text); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send menu")
	}
}
