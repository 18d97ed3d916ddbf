package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// describe returns the HTTP status and the most useful message of a provider
// failure. status is 0 when no response was received.
func describe(err error) (status int, detail string) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, apiErr.Message
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail = bodyDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return reqErr.HTTPStatusCode, detail
	}
	return 0, ""
}

// parseAPIError wraps a provider failure with sentinel so transports answer 502.
func parseAPIError(what string, err, sentinel error) error {
	status, detail := describe(err)
	if status == 0 {
		return fmt.Errorf("%s request failed: %w: %w", what, sentinel, err)
	}
	return fmt.Errorf("%s API error %d: %s: %w", what, status, detail, sentinel)
}

// errorType is the error_type metric label of err.
func errorType(err error) string {
	switch status, _ := describe(err); {
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return "auth"
	case status != 0:
		return "api_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport"
	}
}

// bodyDetail reads {"detail": "..."} bodies returned by some OpenAI-compatible gateways.
func bodyDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return parsed.Detail
}
