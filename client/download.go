package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// SanitizePath turns an attachment name into a safe, lower-case file name.
func SanitizePath(name string) string {
	replacements := []struct {
		old string
		new string
	}{
		{"®", ""}, {"™", ""}, {":", ""}, {"(", ""}, {")", ""}, {" ", "-"}, {"/", "-"}, {"\\", "-"},
	}
	name = strings.ToLower(strings.TrimSpace(name))
	for _, r := range replacements {
		name = strings.ReplaceAll(name, r.old, r.new)
	}
	name = unsafeNameChars.ReplaceAllString(name, "")
	return strings.Trim(name, ".-")
}

// ensureDirExists creates path if needed and fails if it exists as a file.
func ensureDirExists(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path %s exists but is not a directory", path)
		}
		return nil
	}
	if os.IsNotExist(err) {
		log.Info().Msgf("Creating directory: %s", path)
		return os.MkdirAll(path, 0o755)
	}
	return err
}

// DownloadAttachment streams an attachment's content into dir and returns the file path.
// Progress is rendered to progress when it is non-nil. A partial file is removed on failure.
func (c *Client) DownloadAttachment(ctx context.Context, att Attachment, dir string, progress io.Writer) (string, error) {
	fileName := SanitizePath(att.Name)
	if fileName == "" {
		fileName = SanitizePath(att.ID)
	}
	if fileName == "" {
		return "", errors.New("attachment has neither a usable name nor an ID")
	}
	if err := ensureDirExists(dir); err != nil {
		return "", fmt.Errorf("failed to prepare download directory: %w", err)
	}
	filePath := filepath.Join(dir, fileName)

	req, err := newRequest(ctx, http.MethodGet, c.endpoint(nil, "tasks", att.TaskID, "attachments", att.ID, "content"), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "*/*")
	resp, err := c.send(req)
	if err != nil {
		return "", fmt.Errorf("failed to download attachment %s: %w", att.ID, err)
	}
	defer resp.Body.Close()

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filePath, err)
	}

	size := resp.ContentLength
	if size <= 0 && att.Size > 0 {
		size = att.Size
	}
	var dst io.Writer = file
	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = progressbar.NewOptions64(
			size,
			progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", fileName)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetPredictTime(false),
		)
		dst = io.MultiWriter(file, bar)
	}

	written, copyErr := io.Copy(dst, c.limiter.Reader(ctx, resp.Body))
	closeErr := file.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(filePath)
		if ctx.Err() != nil {
			log.Info().Str("file", fileName).Msg("Download cancelled")
			return "", ctx.Err()
		}
		return "", fmt.Errorf("failed to write %s: %w", filePath, copyErr)
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintf(progress, "Finished downloading: %s\n", fileName)
	}
	log.Info().Str("file", filePath).Int64("bytes", written).Msg("Attachment downloaded")
	return filePath, nil
}
