// Package httprequest implements the http_request action, the main way a
// workflow reaches out to an external system.
package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zapline/zapline/pkg/models"
)

const requestTimeout = 30 * time.Second

// IdempotencyKeyHeader carries the execution's idempotency key so targets
// that support it can dedup redelivered stages.
const IdempotencyKeyHeader = "X-Idempotency-Key"

type Action struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string

	client *http.Client
}

func NewAction(config map[string]any) (*Action, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("http_request action requires a url")
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)

	headersConfig, _ := config["headers"].(map[string]any)
	for key, value := range headersConfig {
		text, ok := value.(string)
		if ok {
			headers[key] = text
		}
	}

	return &Action{
		Method:  strings.ToUpper(method),
		URL:     url,
		Headers: headers,
		Body:    body,
		client:  &http.Client{Timeout: requestTimeout},
	}, nil
}

// Execute performs a single request. Transient failures surface as errors
// so the stage executor's retry policy decides on another attempt; a second
// retry layer here would multiply the attempt budget.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "http_request", "url", a.URL, "method", a.Method)
	logger.InfoContext(ctx, "Executing http request action")

	response, err := a.perform(ctx, executionCtx)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Http request action completed",
		"status_code", response["status_code"])

	return response, nil
}

func (a *Action) perform(ctx context.Context, executionCtx models.ExecutionContext) (map[string]any, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if a.Body != "" {
		bodyReader = strings.NewReader(a.Body)
	}

	req, err := http.NewRequestWithContext(reqCtx, a.Method, a.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	req.Header.Set(IdempotencyKeyHeader, executionCtx.IdempotencyKey())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// 5xx responses go through the retry classifier.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("server error (status %d)", resp.StatusCode)
	}

	var body any
	err = json.Unmarshal(bodyBytes, &body)
	if err != nil {
		body = string(bodyBytes)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
	}, nil
}
