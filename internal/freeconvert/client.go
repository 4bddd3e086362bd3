// Package freeconvert клиент REST API FreeConvert
package freeconvert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

var ErrMalformedResponse = errors.New("malformed response")

// APIError ответ сервиса с кодом не 2xx
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// UploadTask слот для загрузки исходного файла
type UploadTask struct {
	ID     string `json:"id"`
	Result struct {
		Form UploadForm `json:"form"`
	} `json:"result"`
}

type UploadForm struct {
	URL        string         `json:"url"`
	Parameters map[string]any `json:"parameters"`
}

type CompressOptions struct {
	VideoCodec   string `json:"video_codec_compress"`
	CompressMode string `json:"compress_video"`
	CRF          string `json:"video_compress_crf_x265"`
	Speed        string `json:"video_compress_speed"`
}

type CompressRequest struct {
	Input        string          `json:"input"`
	InputFormat  string          `json:"input_format"`
	OutputFormat string          `json:"output_format"`
	Options      CompressOptions `json:"options"`
}

// DefaultCompressOptions H.265 по качеству, самый быстрый пресет
func DefaultCompressOptions() CompressOptions {
	return CompressOptions{
		VideoCodec:   "libx265",
		CompressMode: "by_video_quality",
		CRF:          "28",
		Speed:        "veryfast",
	}
}

type Task struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result struct {
		URL string `json:"url"`
	} `json:"result"`

	// Raw исходное тело ответа
	Raw json.RawMessage `json:"-"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// CreateUploadTask запрашивает слот загрузки
func (c *Client) CreateUploadTask(ctx context.Context, apiKey string) (UploadTask, error) {
	var task UploadTask
	if err := c.doJSON(ctx, "import upload", http.MethodPost, "/process/import/upload", apiKey, nil, &task); err != nil {
		return task, err
	}
	if task.ID == "" || task.Result.Form.URL == "" {
		return task, fmt.Errorf("import upload: %w", ErrMalformedResponse)
	}
	return task, nil
}

// Upload отправляет файл в слот multipart-формой, не читая его целиком в память
func (c *Client) Upload(ctx context.Context, form UploadForm, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("upload: open %s: %w", filePath, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, form.Parameters, filepath.Base(filePath), f))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, form.URL, pr)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: "upload", StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func writeForm(mw *multipart.Writer, params map[string]any, fileName string, r io.Reader) error {
	// параметры формы должны идти до файла
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fmt.Sprint(params[k])); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// CreateCompressTask создает задачу сжатия загруженного файла
func (c *Client) CreateCompressTask(ctx context.Context, apiKey string, body CompressRequest) (Task, error) {
	var task Task
	if err := c.doJSON(ctx, "compress", http.MethodPost, "/process/compress", apiKey, body, &task); err != nil {
		return task, err
	}
	if task.ID == "" {
		return task, fmt.Errorf("compress: %w", ErrMalformedResponse)
	}
	return task, nil
}

func (c *Client) GetTask(ctx context.Context, apiKey, taskID string) (Task, error) {
	var task Task
	if err := c.doJSON(ctx, "task status", http.MethodGet, "/process/tasks/"+taskID, apiKey, nil, &task); err != nil {
		return task, err
	}
	return task, nil
}

// Download пишет результат в w; ожидается ровно 200
func (c *Client) Download(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Op: "download", StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path, apiKey string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(data), 1024)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	if t, ok := out.(*Task); ok {
		t.Raw = json.RawMessage(data)
	}
	return nil
}

func readBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 1024))
	return string(data)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
