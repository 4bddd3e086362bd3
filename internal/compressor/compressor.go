// Package compressor проводит видео через FreeConvert:
// загрузка, сжатие, ожидание результата и скачивание.
package compressor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"tg-compress-bot/internal/freeconvert"
	"tg-compress-bot/pkg/utilities"
)

const defaultFormat = "mp4"

var ErrTimeout = errors.New("compression timed out")

// TaskFailedError сервис вернул статус failed
type TaskFailedError struct {
	TaskID  string
	Payload string
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("compression task %s failed: %s", e.TaskID, e.Payload)
}

// API подмножество freeconvert.Client, нужное для сжатия
type API interface {
	CreateUploadTask(ctx context.Context, apiKey string) (freeconvert.UploadTask, error)
	Upload(ctx context.Context, form freeconvert.UploadForm, filePath string) error
	CreateCompressTask(ctx context.Context, apiKey string, body freeconvert.CompressRequest) (freeconvert.Task, error)
	GetTask(ctx context.Context, apiKey, taskID string) (freeconvert.Task, error)
	Download(ctx context.Context, url string, w io.Writer) error
}

type Stage string

const (
	StageUploading   Stage = "uploading"
	StageCompressing Stage = "compressing"
	StageDownloading Stage = "downloading"
)

type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration
	TempDir      string
}

type Result struct {
	OutputPath string
	RemoteName string
}

type Compressor struct {
	api    API
	opts   Options
	logger zerolog.Logger
}

func New(api API, opts Options, logger zerolog.Logger) *Compressor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Compressor{api: api, opts: opts, logger: logger}
}

// Run сжимает inputPath и возвращает путь к временному файлу результата.
// Удаление входного файла и результата остается за вызывающим.
func (c *Compressor) Run(ctx context.Context, apiKey, inputPath string, progress func(Stage)) (Result, error) {
	if progress == nil {
		progress = func(Stage) {}
	}
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	res, err := c.run(ctx, apiKey, inputPath, progress)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{}, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return res, err
}

func (c *Compressor) run(ctx context.Context, apiKey, inputPath string, progress func(Stage)) (Result, error) {
	progress(StageUploading)

	upload, err := c.api.CreateUploadTask(ctx, apiKey)
	if err != nil {
		return Result{}, err
	}
	if err := c.api.Upload(ctx, upload.Result.Form, inputPath); err != nil {
		return Result{}, err
	}
	c.logger.Debug().Str("import_task_id", upload.ID).Msg("Source uploaded")

	format := utilities.FileExt(inputPath)
	if format == "" {
		format = defaultFormat
	}

	progress(StageCompressing)

	task, err := c.api.CreateCompressTask(ctx, apiKey, freeconvert.CompressRequest{
		Input:        upload.ID,
		InputFormat:  format,
		OutputFormat: format,
		Options:      freeconvert.DefaultCompressOptions(),
	})
	if err != nil {
		return Result{}, err
	}
	log := c.logger.With().Str("task_id", task.ID).Logger()
	log.Info().Str("format", format).Msg("Compression task created")

	done, err := c.waitTask(ctx, apiKey, task.ID)
	if err != nil {
		return Result{}, err
	}

	progress(StageDownloading)

	remoteName := utilities.LastSegment(done.Result.URL)
	outputPath, err := c.download(ctx, done.Result.URL, remoteName)
	if err != nil {
		return Result{}, err
	}
	log.Info().Str("output", outputPath).Msg("Compressed file downloaded")

	return Result{OutputPath: outputPath, RemoteName: remoteName}, nil
}

// waitTask опрашивает задачу до completed/failed или до отмены ctx
func (c *Compressor) waitTask(ctx context.Context, apiKey, taskID string) (freeconvert.Task, error) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return freeconvert.Task{}, ctx.Err()
		case <-timer.C:
		}

		task, err := c.api.GetTask(ctx, apiKey, taskID)
		if err != nil {
			return task, err
		}

		switch task.Status {
		case freeconvert.TaskStatusCompleted:
			if task.Result.URL == "" {
				return task, fmt.Errorf("task %s: %w", taskID, freeconvert.ErrMalformedResponse)
			}
			return task, nil
		case freeconvert.TaskStatusFailed:
			return task, &TaskFailedError{TaskID: taskID, Payload: string(task.Raw)}
		}

		c.logger.Debug().Str("task_id", taskID).Str("status", task.Status).Msg("Waiting for compression")
		timer.Reset(c.opts.PollInterval)
	}
}

func (c *Compressor) download(ctx context.Context, url, remoteName string) (string, error) {
	ext := utilities.FileExt(remoteName)
	if ext == "" {
		ext = defaultFormat
	}

	f, err := os.CreateTemp(c.opts.TempDir, "compressed-*."+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if err := c.api.Download(ctx, url, f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}
