// Package ocrclient talks to the external OCR service that stores processed
// documents and their output files.
package ocrclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"path"
	"strings"
	"time"

	"go-ocr-inventory/internal/model"
	"go-ocr-inventory/pkg/apierror"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultUploadTimeout = 5 * time.Minute
	maxErrorBody         = 4 << 10

	// FileField is the multipart field the OCR service reads the upload from.
	FileField = "file"
)

// StatusError is returned when the OCR service answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// AsStatusError unwraps err into a StatusError.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Describe turns a client error into short user-facing text.
func Describe(err error) string {
	if se, ok := AsStatusError(err); ok {
		if se.Body != "" {
			return se.Body
		}
		return fmt.Sprintf("server returned %d", se.StatusCode)
	}
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "OCR service unreachable"
}

type Config struct {
	BaseURL       string
	Timeout       time.Duration
	UploadTimeout time.Duration
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	uploadClient *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = defaultUploadTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: cfg.Timeout, Transport: transport},
		uploadClient: &http.Client{Timeout: cfg.UploadTimeout, Transport: transport},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks the service health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError("health check", resp)
	}

	return nil
}

// ListFiles returns every file the service currently stores. Both the
// object listing and the older plain-name listing are accepted.
func (c *Client) ListFiles(ctx context.Context) ([]model.RemoteFileRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files", nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError("list files", resp)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode file listing: %w", err)
	}

	records := make([]model.RemoteFileRecord, 0, len(raw))
	for i, item := range raw {
		record, ok, err := decodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("decode file listing entry %d: %w", i, err)
		}
		if !ok {
			slog.Debug("skipping empty listing entry", "index", i)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func decodeRecord(item json.RawMessage) (model.RemoteFileRecord, bool, error) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return model.RemoteFileRecord{}, false, err
		}
		name = strings.TrimSpace(name)
		return model.RemoteFileRecord{Name: name}, name != "", nil
	}

	var record model.RemoteFileRecord
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return model.RemoteFileRecord{}, false, err
	}

	record.Name = strings.TrimSpace(record.Name)
	record.Path = strings.TrimSpace(record.Path)
	if record.Name == "" && record.Path == "" {
		return model.RemoteFileRecord{}, false, nil
	}
	if record.Name == "" {
		record.Name = path.Base(strings.ReplaceAll(record.Path, `\`, "/"))
	}

	return record, true, nil
}

// Process streams content to the service as a multipart upload and returns
// the raw JSON result of the processing run.
func (c *Client) Process(ctx context.Context, name string, content io.Reader) (json.RawMessage, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(writeFilePart(writer, name, content))
	}()
	// content belongs to the caller, so it must not be read once Process
	// returns. Closing the pipe makes the pending write fail.
	defer func() {
		_ = pr.Close()
		<-done
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process", pr)
	if err != nil {
		return nil, fmt.Errorf("build process request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("process %q: %w", name, err)
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError("process", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read process response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("process %q: response is not JSON", name)
	}

	return json.RawMessage(body), nil
}

func writeFilePart(writer *multipart.Writer, name string, content io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FileField, escapeQuotes(name)))
	header.Set("Content-Type", "application/pdf")

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}

	return writer.Close()
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// DeleteDirectory removes a stored document directory with all its files.
func (c *Client) DeleteDirectory(ctx context.Context, dir string) error {
	cleaned, err := CleanRemotePath(dir)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/files/"+escapePath(cleaned), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete %q: %w", cleaned, err)
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError("delete", resp)
	}

	return nil
}

// DownloadURL links to the download endpoint of a stored file.
func (c *Client) DownloadURL(remotePath string) (string, error) {
	cleaned, err := CleanRemotePath(remotePath)
	if err != nil {
		return "", err
	}
	return c.baseURL + "/download/" + escapePath(cleaned), nil
}

// StaticFileURL links to a file served directly by name.
func (c *Client) StaticFileURL(name string) (string, error) {
	cleaned, err := CleanRemotePath(name)
	if err != nil {
		return "", err
	}
	return c.baseURL + "/files/" + escapePath(cleaned), nil
}

func newStatusError(op string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: errorDetail(body)}
}

// errorDetail prefers the service's own error text over the raw body.
func errorDetail(body []byte) string {
	var envelope struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if detail, ok := envelope.Detail.(string); ok && detail != "" {
			return detail
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBody))
	_ = body.Close()
}
