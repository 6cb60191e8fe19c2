package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Design® Review: (Final)", "design-review-final"},
		{"Q3 Report.pdf", "q3-report.pdf"},
		{"../../etc/passwd", "etc-passwd"},
		{"!!!***???", ""},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SanitizePath(c.in), "SanitizePath(%q)", c.in)
	}
}

func TestDownloadAttachment(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := New(srv.URL, srv.Client())
	dir := filepath.Join(t.TempDir(), "nested")
	var progress bytes.Buffer

	path, err := c.DownloadAttachment(context.Background(), Attachment{ID: "a-1", TaskID: "t-1", Name: "Q3 Report.pdf", Size: 11}, dir, &progress)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "q3-report.pdf"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
	assert.Contains(t, progress.String(), "Finished downloading: q3-report.pdf")
}

func TestDownloadAttachment_WithoutProgress(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := New(srv.URL, srv.Client(), WithRateLimit(1<<20))

	path, err := c.DownloadAttachment(context.Background(), Attachment{ID: "a-1", TaskID: "t-1"}, t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, "a-1", filepath.Base(path), "falls back to the attachment ID")
}

func TestDownloadAttachment_Errors(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := New(srv.URL, srv.Client())

	t.Run("server error leaves no file", func(t *testing.T) {
		dir := t.TempDir()
		_, err := c.DownloadAttachment(context.Background(), Attachment{ID: "gone", TaskID: "t-1", Name: "x.txt"}, dir, nil)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		_, statErr := os.Stat(filepath.Join(dir, "x.txt"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("unusable name", func(t *testing.T) {
		_, err := c.DownloadAttachment(context.Background(), Attachment{ID: "???", TaskID: "t-1", Name: "***"}, t.TempDir(), nil)
		assert.Error(t, err)
	})

	t.Run("directory is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		_, err := c.DownloadAttachment(context.Background(), Attachment{ID: "a-1", TaskID: "t-1", Name: "x"}, file, nil)
		assert.Error(t, err)
	})
}
