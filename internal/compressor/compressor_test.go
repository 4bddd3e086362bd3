package compressor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-compress-bot/internal/freeconvert"
)

// fakeService имитирует FreeConvert: статусы задачи отдаются по очереди
type fakeService struct {
	t        *testing.T
	statuses []string
	polls    atomic.Int32
	mu       sync.Mutex
	uploaded string
	format   string
	download int
}

func (f *fakeService) handler(srvURL *string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/process/import/upload", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"imp-1","result":{"form":{"url":"%s/upload","parameters":{"token":"t"}}}}`, *srvURL)
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if !assert.NoError(f.t, err) {
			return
		}
		data, _ := io.ReadAll(file)
		f.mu.Lock()
		f.uploaded = string(data)
		f.mu.Unlock()
	})
	mux.HandleFunc("/process/compress", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.format = string(body)
		f.mu.Unlock()
		io.WriteString(w, `{"id":"cmp-1"}`)
	})
	mux.HandleFunc("/process/tasks/cmp-1", func(w http.ResponseWriter, r *http.Request) {
		n := int(f.polls.Add(1)) - 1
		status := f.statuses[len(f.statuses)-1]
		if n < len(f.statuses) {
			status = f.statuses[n]
		}
		fmt.Fprintf(w, `{"id":"cmp-1","status":"%s","result":{"url":"%s/files/result.mkv"}}`, status, *srvURL)
	})
	mux.HandleFunc("/files/result.mkv", func(w http.ResponseWriter, r *http.Request) {
		if f.download != 0 {
			w.WriteHeader(f.download)
			return
		}
		io.WriteString(w, "small-video")
	})
	return mux
}

func (f *fakeService) snapshot() (uploaded, format string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploaded, f.format
}

func newFake(t *testing.T, statuses ...string) (*fakeService, *freeconvert.Client) {
	t.Helper()
	f := &fakeService{t: t, statuses: statuses}
	var url string
	srv := httptest.NewServer(f.handler(&url))
	url = srv.URL
	t.Cleanup(srv.Close)
	return f, freeconvert.NewClient(srv.URL, srv.Client())
}

func writeInput(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("big-video"), 0o600))
	return path
}

func testOptions(t *testing.T) Options {
	return Options{PollInterval: 5 * time.Millisecond, Timeout: 5 * time.Second, TempDir: t.TempDir()}
}

func TestRun_Completed(t *testing.T) {
	fake, client := newFake(t, "processing", "processing", freeconvert.TaskStatusCompleted)
	c := New(client, testOptions(t), zerolog.Nop())

	var stages []Stage
	res, err := c.Run(context.Background(), "key.ab.cd", writeInput(t, "input.mkv"), func(s Stage) {
		stages = append(stages, s)
	})
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(res.OutputPath) })

	assert.Equal(t, "result.mkv", res.RemoteName)
	assert.True(t, strings.HasSuffix(res.OutputPath, ".mkv"))
	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "small-video", string(data))

	uploaded, format := fake.snapshot()
	assert.Equal(t, int32(3), fake.polls.Load())
	assert.Equal(t, "big-video", uploaded)
	assert.Contains(t, format, `"input_format":"mkv"`)
	assert.Contains(t, format, `"input":"imp-1"`)
	assert.Equal(t, []Stage{StageUploading, StageCompressing, StageDownloading}, stages)
}

func TestRun_DefaultFormatWithoutExtension(t *testing.T) {
	fake, client := newFake(t, freeconvert.TaskStatusCompleted)
	c := New(client, testOptions(t), zerolog.Nop())

	res, err := c.Run(context.Background(), "k", writeInput(t, "input"), nil)
	require.NoError(t, err)
	os.Remove(res.OutputPath)
	_, format := fake.snapshot()
	assert.Contains(t, format, `"output_format":"mp4"`)
}

func TestRun_TaskFailedCarriesPayload(t *testing.T) {
	opts := testOptions(t)
	_, client := newFake(t, "processing", freeconvert.TaskStatusFailed)
	c := New(client, opts, zerolog.Nop())

	_, err := c.Run(context.Background(), "k", writeInput(t, "input.mp4"), nil)
	var failed *TaskFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "cmp-1", failed.TaskID)
	assert.Contains(t, failed.Payload, `"status":"failed"`)

	entries, err := os.ReadDir(opts.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_DownloadFailureRemovesTemp(t *testing.T) {
	opts := testOptions(t)
	fake, client := newFake(t, freeconvert.TaskStatusCompleted)
	fake.download = http.StatusGone
	c := New(client, opts, zerolog.Nop())

	_, err := c.Run(context.Background(), "k", writeInput(t, "input.mp4"), nil)
	var apiErr *freeconvert.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusGone, apiErr.StatusCode)

	entries, err := os.ReadDir(opts.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_TimesOutWhenNeverFinished(t *testing.T) {
	opts := testOptions(t)
	opts.Timeout = 50 * time.Millisecond
	_, client := newFake(t, "processing")
	c := New(client, opts, zerolog.Nop())

	start := time.Now()
	_, err := c.Run(context.Background(), "k", writeInput(t, "input.mp4"), nil)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRun_ParentCancel(t *testing.T) {
	_, client := newFake(t, "processing")
	opts := testOptions(t)
	opts.Timeout = 0
	c := New(client, opts, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := c.Run(ctx, "k", writeInput(t, "input.mp4"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestRun_UploadSlotRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"Unauthorized"}`)
	}))
	defer srv.Close()

	c := New(freeconvert.NewClient(srv.URL, srv.Client()), testOptions(t), zerolog.Nop())
	_, err := c.Run(context.Background(), "bad", writeInput(t, "input.mp4"), nil)
	var apiErr *freeconvert.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
