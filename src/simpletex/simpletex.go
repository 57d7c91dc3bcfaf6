// Package simpletex is the HTTP client for the SimpleTex LaTeX OCR endpoint.
package simpletex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"sort"
	"time"

	"latex-ocr/src/signer"
)

const (
	fileField       = "file"
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 1 << 20
)

// Response is the JSON document returned by the endpoint.
type Response struct {
	Status    bool     `json:"status"`
	Res       *Formula `json:"res,omitempty"`
	Message   string   `json:"message,omitempty"`
	ErrorCode string   `json:"error_code,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

type Formula struct {
	Latex string  `json:"latex"`
	Conf  float64 `json:"conf,omitempty"`
}

// Client posts signed multipart requests to a fixed endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a client. A non-positive timeout falls back to 30s.
func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Send uploads image under the "file" field together with the body fields and the
// signed header set. It returns the raw response body and HTTP status; only
// transport failures are reported as errors.
func (c *Client) Send(ctx context.Context, filename string, image []byte, header signer.Header, fields map[string]string) ([]byte, int, error) {
	body, contentType, err := encodeMultipart(filename, image, fields)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	header.Apply(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// Decode parses a response body.
func Decode(body []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func encodeMultipart(filename string, image []byte, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, filepath.Base(filename)))
	h.Set("Content-Type", http.DetectContentType(image))
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
