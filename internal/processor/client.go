// Package processor is the HTTP client for the spreadsheet processing
// service and the wire types the service speaks.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/fin-processor/backend/internal/logging"
	"github.com/fin-processor/backend/internal/models"
)

// DefaultTimeout bounds a whole upload round trip.
const DefaultTimeout = 120 * time.Second

// Client talks to the processing service at a fixed base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	format     Format
	log        *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithFormat selects the response encoding requested from the service.
func WithFormat(f Format) Option {
	return func(c *Client) { c.format = f }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a client for the service at baseURL, e.g. "http://127.0.0.1:5000".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		format:     FormatJSON,
		log:        logging.NewLogger("processor"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string { return c.baseURL }

// Health probes GET /api/health. Any 2xx response is healthy; the body is ignored.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health probe returned %d", resp.StatusCode)
	}
	return nil
}

// Sheets fetches the catalog of sheets the service extracts.
func (c *Client) Sheets(ctx context.Context) ([]SheetInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sheets", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", MIMEApplicationJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("processing service returned %d", resp.StatusCode)
	}

	var out SheetsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Sheets, nil
}

// Upload sends r as the single "file" field of a multipart form to
// POST /api/upload. Every failure is an *UploadError.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, NewTransportFailure(c.baseURL, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, NewTransportFailure(c.baseURL, fmt.Errorf("read %s: %w", name, err))
	}
	if err := mw.Close(); err != nil {
		return nil, NewTransportFailure(c.baseURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return nil, NewTransportFailure(c.baseURL, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", c.format.MediaType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("file", name).Warn("upload request failed")
		return nil, NewTransportFailure(c.baseURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransportFailure(c.baseURL, err)
	}

	c.log.WithFields(logrus.Fields{
		"file":     name,
		"status":   resp.StatusCode,
		"bytes":    len(payload),
		"duration": time.Since(start).String(),
	}).Debug("upload response received")

	return decodeUploadResponse(c.baseURL, resp.StatusCode, resp.Header.Get("Content-Type"), payload)
}

// errNotObject marks a payload that parsed but is not a key/value document.
var errNotObject = errors.New("response is not an object")

// envelope is the top level of a response with each field still encoded.
type envelope struct {
	fields map[string][]byte
	decode func(raw []byte, v interface{}) error
	isNull func(raw []byte) bool
}

func (e envelope) has(key string) bool {
	raw, ok := e.fields[key]
	return ok && !e.isNull(raw)
}

// str returns a string field, or "" when it is absent or not a string.
func (e envelope) str(key string) string {
	raw, ok := e.fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := e.decode(raw, &s); err != nil {
		return ""
	}
	return s
}

func isJSONNull(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || string(t) == "null"
}

func isMsgpackNil(raw []byte) bool {
	return len(raw) == 0 || (len(raw) == 1 && raw[0] == msgpcode.Nil)
}

func parseJSONEnvelope(payload []byte) (envelope, error) {
	if !json.Valid(payload) {
		var v interface{}
		return envelope{}, json.Unmarshal(payload, &v)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(payload, &m); err != nil || m == nil {
		return envelope{}, errNotObject
	}
	fields := make(map[string][]byte, len(m))
	for k, v := range m {
		fields[k] = v
	}
	return envelope{fields: fields, decode: json.Unmarshal, isNull: isJSONNull}, nil
}

func parseMsgpackEnvelope(payload []byte) (envelope, error) {
	var v interface{}
	if err := msgpack.Unmarshal(payload, &v); err != nil {
		return envelope{}, err
	}
	if _, ok := v.(map[string]interface{}); !ok {
		return envelope{}, errNotObject
	}
	var m map[string]msgpack.RawMessage
	if err := msgpack.Unmarshal(payload, &m); err != nil {
		return envelope{}, errNotObject
	}
	fields := make(map[string][]byte, len(m))
	for k, v := range m {
		fields[k] = v
	}
	return envelope{fields: fields, decode: msgpack.Unmarshal, isNull: isMsgpackNil}, nil
}

func decodeUploadResponse(baseURL string, status int, contentType string, payload []byte) (*UploadResult, error) {
	parse := parseJSONEnvelope
	if IsMsgpackMediaType(contentType) {
		parse = parseMsgpackEnvelope
	}

	ok := status >= 200 && status <= 299
	env, err := parse(payload)

	if !ok {
		// non-2xx: the service's error text wins, whatever the body looks like
		if err != nil {
			return nil, NewServerRejected(status, "", err)
		}
		return nil, NewServerRejected(status, env.str("error"), fmt.Errorf("status %d", status))
	}

	if err != nil {
		if errors.Is(err, errNotObject) {
			return nil, NewServerRejected(status, MalformedResponseMessage, err)
		}
		return nil, NewTransportFailure(baseURL, err)
	}

	if !env.has("data") {
		return nil, NewServerRejected(status, env.str("error"), errors.New("response has no data"))
	}

	set := models.NewResultSet()
	if err := env.decode(env.fields["data"], set); err != nil {
		return nil, NewServerRejected(status, MalformedResponseMessage, err)
	}

	var processed []string
	if raw, ok := env.fields["processed_sheets"]; ok {
		_ = env.decode(raw, &processed)
	}

	return &UploadResult{
		Message:         env.str("message"),
		ProcessedSheets: processed,
		Data:            set,
	}, nil
}
