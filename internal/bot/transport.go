package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// Transport операции чата, которые нужны боту
type Transport interface {
	SendMessage(chatID int64, text string) (int, error)
	SendMenu(chatID int64, text string) error
	EditMessage(chatID int64, messageID int, text string) error
	SendVideo(chatID int64, path, caption string) error
	DownloadFile(ctx context.Context, fileID, destPath string) error
}

// TelegramTransport реализация Transport поверх Bot API
type TelegramTransport struct {
	API        *tgbotapi.BotAPI
	httpClient *http.Client
}

func NewTelegramTransport(api *tgbotapi.BotAPI, httpClient *http.Client) *TelegramTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TelegramTransport{API: api, httpClient: httpClient}
}

func (t *TelegramTransport) SendMessage(chatID int64, text string) (int, error) {
	sent, err := t.API.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (t *TelegramTransport) SendMenu(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := t.API.Send(msg)
	return err
}

func (t *TelegramTransport) EditMessage(chatID int64, messageID int, text string) error {
	_, err := t.API.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

func (t *TelegramTransport) SendVideo(chatID int64, path, caption string) error {
	video := tgbotapi.NewVideoUpload(chatID, path)
	video.Caption = caption
	_, err := t.API.Send(video)
	return err
}

// DownloadFile скачивает вложение по file_id в destPath
func (t *TelegramTransport) DownloadFile(ctx context.Context, fileID, destPath string) error {
	file, err := t.API.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(t.API.Token), nil)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	output, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := io.Copy(output, resp.Body); err != nil {
		output.Close()
		return fmt.Errorf("failed to save file: %w", err)
	}

	return output.Close()
}
