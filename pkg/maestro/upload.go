package maestro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Uploader is the external collaborator that turns raw captured audio
// into an opaque audio-asset identifier.
type Uploader interface {
	Upload(ctx context.Context, recordingID string, audio []byte) (string, error)
}

// HTTPUploader posts captured audio to the upload endpoint and returns
// the server-assigned audio_file_id.
type HTTPUploader struct {
	endpoint   string
	headers    map[string]string
	httpClient *http.Client
}

func NewHTTPUploader(endpoint string, headers map[string]string) *HTTPUploader {
	return &HTTPUploader{
		endpoint: endpoint,
		headers:  headers,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
	}
}

type uploadResponse struct {
	AudioFileID string `json:"audio_file_id"`
	Error       string `json:"error,omitempty"`
}

func (u *HTTPUploader) Upload(ctx context.Context, recordingID string, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(audio))
	if err != nil {
		return "", NewUploadError(err.Error())
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("User-Agent", "MaestroSDK-Go/1.0")
	req.Header.Set("X-Recording-ID", recordingID)
	for k, v := range u.headers {
		req.Header.Set(k, v)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", WrapError(err, ErrCodeUpload)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", WrapError(err, ErrCodeUpload)
	}

	if resp.StatusCode >= 400 {
		errMsg := string(respBody)
		if errMsg == "" {
			errMsg = http.StatusText(resp.StatusCode)
		}
		return "", NewUploadError(errMsg).AddDetail("status_code", resp.StatusCode)
	}

	var decoded uploadResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", NewUploadError(fmt.Sprintf("malformed upload response: %v", err))
	}
	if decoded.Error != "" {
		return "", NewUploadError(decoded.Error)
	}
	if decoded.AudioFileID == "" {
		return "", NewUploadError("upload response missing audio_file_id")
	}
	return decoded.AudioFileID, nil
}
