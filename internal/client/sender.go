package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ryabkov82/biometric-sender/internal/ingest"
	"github.com/ryabkov82/biometric-sender/internal/payload"
	"github.com/ryabkov82/biometric-sender/internal/report"
)

// DefaultTimeout bounds one upload request
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read
const maxResponseBytes = 1 << 20

// Options configures a Sender
type Options struct {
	BaseURL   string
	Headers   map[string]string
	AuthToken string
	Timeout   time.Duration
	Gzip      bool
}

// Sender posts driver payloads to the biometric API. Each call makes exactly
// one attempt; there is no retry.
type Sender struct {
	client  *http.Client
	baseURL string
	headers http.Header
	timeout time.Duration
	gzip    bool
	timings *ingest.Timings
	logger  *zap.Logger
}

// NewSender validates opts and creates a sender.
// timings and logger may be nil.
func NewSender(opts Options, timings *ingest.Timings, logger *zap.Logger) (*Sender, error) {
	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: expected http(s)://host[:port][/path]", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sender{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(u.String(), "/"),
		headers: BuildHeaders(opts.Headers, opts.AuthToken),
		timeout: timeout,
		gzip:    opts.Gzip,
		timings: timings,
		logger:  logger,
	}, nil
}

// Endpoint returns the upload URL for a driver
func (s *Sender) Endpoint(driverID string) string {
	return s.baseURL + "/biometric-data/" + url.PathEscape(driverID)
}

// Upload sends one payload and classifies the response. It never returns an
// error: transport and HTTP failures are folded into the Outcome.
func (s *Sender) Upload(ctx context.Context, driverID string, p payload.Payload) Outcome {
	resp, body, err := s.post(ctx, s.Endpoint(driverID), p)
	if err != nil {
		out := s.transportFailure(err)
		s.logger.Debug("Upload failed",
			zap.String("driver", driverID),
			zap.Error(err))
		return out
	}

	out := Classify(resp.StatusCode, body)
	s.logger.Debug("Upload response",
		zap.String("driver", driverID),
		zap.Int("http_status", resp.StatusCode),
		zap.String("status", string(out.Status)))
	return out
}

func (s *Sender) post(ctx context.Context, endpoint string, p payload.Payload) (*http.Response, []byte, error) {
	jsonData, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal error: %w", err)
	}

	var body io.Reader = bytes.NewReader(jsonData)
	contentEncoding := ""
	if s.gzip {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(jsonData); err != nil {
			return nil, nil, fmt.Errorf("gzip error: %w", err)
		}
		if err := gz.Close(); err != nil {
			return nil, nil, fmt.Errorf("gzip close error: %w", err)
		}
		body = &buf
		contentEncoding = "gzip"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, nil, fmt.Errorf("create request error: %w", err)
	}
	for k, v := range s.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}

	httpStart := time.Now()
	resp, err := s.client.Do(req)
	s.timings.ObserveHTTP(time.Since(httpStart))
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, respBody, nil
}

func (s *Sender) transportFailure(err error) Outcome {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return Outcome{
			Status: report.StatusFailed,
			Error:  fmt.Sprintf("request timeout (%s exceeded)", s.timeout),
			Err:    err,
		}
	}
	return Outcome{
		Status: report.StatusFailed,
		Error:  "connection error - unable to reach API: " + err.Error(),
		Err:    err,
	}
}

// HTTPError represents a non-success HTTP response
type HTTPError struct {
	StatusCode int
	Body       string
}

// GetHTTPError extracts HTTPError from error if possible
func GetHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	ok := errors.As(err, &httpErr)
	return httpErr, ok
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
