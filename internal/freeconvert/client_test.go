package freeconvert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUploadTask_SendsBearerAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/process/import/upload", r.URL.Path)
		assert.Equal(t, "Bearer key.ab.cd", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = io.WriteString(w, `{"id":"imp-1","result":{"form":{"url":"https://up.example/x","parameters":{"signature":"s1","expires":123}}}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", srv.Client())
	task, err := c.CreateUploadTask(context.Background(), "key.ab.cd")
	require.NoError(t, err)
	assert.Equal(t, "imp-1", task.ID)
	assert.Equal(t, "https://up.example/x", task.Result.Form.URL)
	assert.Equal(t, "s1", task.Result.Form.Parameters["signature"])
}

func TestCreateUploadTask_Errors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		"non 2xx": {
			status: http.StatusUnauthorized,
			body:   `{"message":"bad token"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
				assert.Contains(t, apiErr.Body, "bad token")
			},
		},
		"not json": {
			status: http.StatusOK,
			body:   `<html>`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
		"missing form": {
			status: http.StatusOK,
			body:   `{"id":"imp-1"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, srv.Client()).CreateUploadTask(context.Background(), "k")
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestUpload_SendsParametersAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video-bytes"), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "s1", r.FormValue("signature"))
		assert.Equal(t, "123", r.FormValue("expires"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "clip.mp4", hdr.Filename)
		assert.Equal(t, "video-bytes", string(data))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	form := UploadForm{URL: srv.URL + "/upload", Parameters: map[string]any{"signature": "s1", "expires": 123}}
	err := NewClient(srv.URL, srv.Client()).Upload(context.Background(), form, path)
	require.NoError(t, err)
}

func TestUpload_Rejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("v"), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, srv.Client()).Upload(context.Background(), UploadForm{URL: srv.URL}, path)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upload", apiErr.Op)
}

func TestUpload_MissingFile(t *testing.T) {
	err := NewClient("http://unused", nil).Upload(context.Background(), UploadForm{URL: "http://unused"}, "/does/not/exist.mp4")
	require.Error(t, err)
}

func TestCreateCompressTask_Body(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/process/compress", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		assert.Equal(t, "imp-1", body["input"])
		assert.Equal(t, "mkv", body["input_format"])
		assert.Equal(t, "mkv", body["output_format"])
		opts := body["options"].(map[string]any)
		assert.Equal(t, "libx265", opts["video_codec_compress"])
		assert.Equal(t, "by_video_quality", opts["compress_video"])
		assert.Equal(t, "28", opts["video_compress_crf_x265"])
		assert.Equal(t, "veryfast", opts["video_compress_speed"])

		_, _ = io.WriteString(w, `{"id":"cmp-1","status":"created"}`)
	}))
	defer srv.Close()

	task, err := NewClient(srv.URL, srv.Client()).CreateCompressTask(context.Background(), "k", CompressRequest{
		Input:        "imp-1",
		InputFormat:  "mkv",
		OutputFormat: "mkv",
		Options:      DefaultCompressOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, "cmp-1", task.ID)
}

func TestGetTask_KeepsRawPayload(t *testing.T) {
	payload := `{"id":"cmp-1","status":"failed","errorCode":"engine_error"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/process/tasks/cmp-1", r.URL.Path)
		_, _ = io.WriteString(w, payload)
	}))
	defer srv.Close()

	task, err := NewClient(srv.URL, srv.Client()).GetTask(context.Background(), "k", "cmp-1")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusFailed, task.Status)
	assert.JSONEq(t, payload, string(task.Raw))
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "compressed")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())

	var buf bytes.Buffer
	require.NoError(t, c.Download(context.Background(), srv.URL+"/out.mp4", &buf))
	assert.Equal(t, "compressed", buf.String())

	err := c.Download(context.Background(), srv.URL+"/missing", &buf)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
