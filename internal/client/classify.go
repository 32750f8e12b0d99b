package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ryabkov82/biometric-sender/internal/report"
)

// maxErrorBody bounds raw response text copied into an error message
const maxErrorBody = 500

// Outcome is the classified result of one upload attempt
type Outcome struct {
	Status        report.Status
	StatusCode    int // 0 when no response was received
	FilesCreated  []string
	FilesUpdated  []string
	FilesMissing  []string
	DriverCreated bool
	Error         string
	Err           error // *HTTPError or the transport error
}

type uploadStatus struct {
	FilesCreated  []string `json:"files_created"`
	FilesUpdated  []string `json:"files_updated"`
	FilesMissing  []string `json:"files_missing"`
	DriverCreated bool     `json:"driver_created"`
	Message       string   `json:"message"`
}

type uploadResponse struct {
	uploadStatus
	Status json.RawMessage `json:"status"`
}

// parseResponse decodes {"status": {...}} with a top-level fallback
func parseResponse(body []byte) (uploadStatus, error) {
	var resp uploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return uploadStatus{}, err
	}
	raw := bytes.TrimSpace(resp.Status)
	if len(raw) > 0 && raw[0] == '{' {
		var nested uploadStatus
		if err := json.Unmarshal(raw, &nested); err != nil {
			return uploadStatus{}, err
		}
		return nested, nil
	}
	return resp.uploadStatus, nil
}

// rawBody returns the trimmed body, truncated to maxErrorBody
func rawBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return text
}

// responseMessage extracts status.message or message, else the raw body
func responseMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}
	if st, err := parseResponse(body); err == nil {
		if st.Message != "" {
			return st.Message
		}
		var top struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &top) == nil && top.Message != "" {
			return top.Message
		}
	}
	return rawBody(body)
}

// Classify maps an HTTP status and body to an Outcome:
// 201 success, 400 skipped, 404/5xx/other failed.
func Classify(statusCode int, body []byte) Outcome {
	out := Outcome{StatusCode: statusCode}

	switch {
	case statusCode == http.StatusCreated:
		if len(bytes.TrimSpace(body)) == 0 {
			out.Status = report.StatusSuccess
			return out
		}
		st, err := parseResponse(body)
		if err != nil {
			out.Status = report.StatusFailed
			out.Error = "invalid JSON response from API"
			out.Err = err
			return out
		}
		out.Status = report.StatusSuccess
		out.FilesCreated = st.FilesCreated
		out.FilesUpdated = st.FilesUpdated
		out.FilesMissing = st.FilesMissing
		out.DriverCreated = st.DriverCreated
		return out

	case statusCode == http.StatusBadRequest:
		out.Status = report.StatusSkipped
		out.Error = messageOr(body, "No new biometric data provided")
		if st, err := parseResponse(body); err == nil {
			out.FilesMissing = st.FilesMissing
		}
		return out

	case statusCode == http.StatusNotFound:
		out.Status = report.StatusFailed
		out.Error = "endpoint not found (HTTP 404) - check the API URL"

	case statusCode >= 500 && statusCode <= 599:
		out.Status = report.StatusFailed
		out.Error = withRawBody(fmt.Sprintf("server error (HTTP %d)", statusCode), body)

	default:
		out.Status = report.StatusFailed
		out.Error = withDetail(fmt.Sprintf("HTTP %d", statusCode), body)
	}

	out.Err = &HTTPError{StatusCode: statusCode, Body: string(body)}
	return out
}

func messageOr(body []byte, fallback string) string {
	if msg := responseMessage(body); msg != "" {
		return msg
	}
	return fallback
}

func withDetail(prefix string, body []byte) string {
	if msg := responseMessage(body); msg != "" {
		return prefix + ": " + msg
	}
	return prefix
}

// withRawBody appends the raw body after the extracted message
func withRawBody(prefix string, body []byte) string {
	raw := rawBody(body)
	if raw == "" {
		return prefix
	}
	msg := responseMessage(body)
	if msg == raw {
		return prefix + ": " + raw
	}
	return prefix + ": " + msg + " (" + raw + ")"
}
