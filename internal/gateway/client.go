package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flota85000/Meta-Bot/internal/ratelimit"
	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL    = "https://api.telegram.org"
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// TelegramClient talks to the Telegram Bot HTTP API. SendMessage and
// SendPoll run under the retry policy (429 honors the server's
// retry-after without consuming an attempt, 5xx and network errors
// back off exponentially); photo upload is idempotency-sensitive and
// fails fast instead.
type TelegramClient struct {
	client     *resty.Client
	baseURL    string
	token      string
	limiter    ratelimit.RateLimiter
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

var _ Client = (*TelegramClient)(nil)

type Option func(*TelegramClient)

// WithBaseURL points the client at a different API host, used by
// tests to target a local server.
func WithBaseURL(baseURL string) Option {
	return func(c *TelegramClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *TelegramClient) {
		if timeout > 0 {
			c.client.SetTimeout(timeout)
		}
	}
}

func WithMaxRetries(maxRetries int) Option {
	return func(c *TelegramClient) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
	}
}

func NewTelegramClient(token string, limiter ratelimit.RateLimiter, opts ...Option) (*TelegramClient, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	restyClient := resty.New()
	restyClient.SetTimeout(defaultTimeout)
	restyClient.SetRetryCount(0)

	c := &TelegramClient{
		client:     restyClient,
		baseURL:    defaultBaseURL,
		token:      token,
		limiter:    limiter,
		maxRetries: defaultMaxRetries,
		sleep:      sleepWithContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *TelegramClient) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *TelegramClient) wait(ctx context.Context, method string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx, method); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// SendMessage sends a plain text message.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	_, err := c.postWithRetry(ctx, "sendMessage", payload)
	return err
}

// SendPhotoURL sends a photo the gateway fetches itself from a
// public URL.
func (c *TelegramClient) SendPhotoURL(ctx context.Context, chatID, photoURL, caption string) error {
	payload := map[string]any{
		"chat_id": chatID,
		"photo":   photoURL,
	}
	if caption != "" {
		payload["caption"] = caption
	}
	return c.sendPhotoOnce(ctx, func(req *resty.Request) *resty.Request {
		return req.SetBody(payload).SetHeader("Content-Type", "application/json")
	})
}

// SendPhotoUpload sends a photo as a multipart binary upload, for
// hosts the gateway refuses to fetch from directly.
func (c *TelegramClient) SendPhotoUpload(ctx context.Context, chatID string, photo []byte, filename, caption string) error {
	if len(photo) == 0 {
		return fmt.Errorf("photo payload is empty")
	}
	if filename == "" {
		filename = "photo.jpg"
	}
	return c.sendPhotoOnce(ctx, func(req *resty.Request) *resty.Request {
		req = req.
			SetFileReader("photo", filename, bytes.NewReader(photo)).
			SetFormData(map[string]string{"chat_id": chatID})
		if caption != "" {
			req = req.SetFormData(map[string]string{"caption": caption})
		}
		return req
	})
}

func (c *TelegramClient) sendPhotoOnce(ctx context.Context, build func(*resty.Request) *resty.Request) error {
	if err := c.wait(ctx, "sendPhoto"); err != nil {
		return err
	}

	response, err := build(c.client.R().SetContext(ctx)).Post(c.methodURL("sendPhoto"))
	if err != nil {
		return &GatewayError{
			Description: "sendPhoto request failed",
			Transient:   true,
			Cause:       err,
		}
	}

	envelope, envErr := decodeEnvelope(response)
	if envErr != nil {
		return envErr
	}
	if response.StatusCode() != http.StatusOK || !envelope.OK {
		return &GatewayError{
			Code:        errorCode(response.StatusCode(), envelope),
			Description: errorDescription(envelope),
			Transient:   false,
		}
	}
	return nil
}

// SendPoll sends an anonymous single-answer poll and returns the
// gateway-issued poll id used to correlate answers.
func (c *TelegramClient) SendPoll(ctx context.Context, chatID, question string, options []string) (string, error) {
	if len(options) < 2 {
		return "", fmt.Errorf("a poll needs at least 2 options (got %d)", len(options))
	}

	payload := map[string]any{
		"chat_id":                 chatID,
		"question":                question,
		"options":                 options,
		"is_anonymous":            false,
		"allows_multiple_answers": false,
	}

	result, err := c.postWithRetry(ctx, "sendPoll", payload)
	if err != nil {
		return "", err
	}

	var sent sentPollResult
	if err := json.Unmarshal(result, &sent); err != nil {
		return "", &GatewayError{
			Description: "malformed sendPoll result",
			Transient:   false,
			Cause:       err,
		}
	}
	return sent.Poll.ID, nil
}

// GetUpdates pulls pending events. timeoutSec is the server-side
// long-poll timeout; the HTTP timeout is stretched to cover it.
func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64, timeoutSec int, allowedTypes []string) ([]Update, error) {
	if timeoutSec < 0 {
		timeoutSec = 0
	}

	payload := map[string]any{
		"offset":  offset,
		"timeout": timeoutSec,
	}
	if len(allowedTypes) > 0 {
		payload["allowed_updates"] = allowedTypes
	}

	if err := c.wait(ctx, "getUpdates"); err != nil {
		return nil, err
	}

	callCtx := ctx
	if timeoutSec > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second+defaultTimeout)
		defer cancel()
	}

	response, err := c.client.R().
		SetContext(callCtx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.methodURL("getUpdates"))
	if err != nil {
		return nil, &GatewayError{
			Description: "getUpdates request failed",
			Transient:   true,
			Cause:       err,
		}
	}

	envelope, envErr := decodeEnvelope(response)
	if envErr != nil {
		return nil, envErr
	}
	if !response.IsSuccess() || !envelope.OK {
		return nil, &GatewayError{
			Code:        errorCode(response.StatusCode(), envelope),
			Description: errorDescription(envelope),
			Transient:   isTransientHTTPStatus(response.StatusCode()),
		}
	}

	var updates []Update
	if err := json.Unmarshal(envelope.Result, &updates); err != nil {
		return nil, &GatewayError{
			Description: "malformed getUpdates result",
			Transient:   false,
			Cause:       err,
		}
	}
	return updates, nil
}

func (c *TelegramClient) postWithRetry(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	if err := c.wait(ctx, method); err != nil {
		return nil, err
	}

	attempt := 1
	for {
		response, err := c.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(payload).
			Post(c.methodURL(method))
		if err != nil {
			// Network failure consumes an attempt.
			if attempt >= c.maxRetries {
				return nil, &GatewayError{
					Description: fmt.Sprintf("%s request failed", method),
					Transient:   true,
					Cause:       err,
				}
			}
			if serr := c.sleep(ctx, backoffDelay(attempt)); serr != nil {
				return nil, serr
			}
			attempt++
			continue
		}

		envelope, envErr := decodeEnvelope(response)

		if response.StatusCode() == http.StatusTooManyRequests {
			// Rate-limit waits do not consume an attempt.
			retryAfter := 1
			if envelope != nil && envelope.Parameters != nil && envelope.Parameters.RetryAfter > 0 {
				retryAfter = envelope.Parameters.RetryAfter
			}
			if serr := c.sleep(ctx, time.Duration(retryAfter+1)*time.Second); serr != nil {
				return nil, serr
			}
			continue
		}

		if response.StatusCode() >= http.StatusInternalServerError {
			if attempt >= c.maxRetries {
				return nil, &GatewayError{
					Code:        errorCode(response.StatusCode(), envelope),
					Description: errorDescription(envelope),
					Transient:   true,
				}
			}
			if serr := c.sleep(ctx, backoffDelay(attempt)); serr != nil {
				return nil, serr
			}
			attempt++
			continue
		}

		if envErr != nil {
			return nil, envErr
		}
		if response.IsSuccess() && envelope.OK {
			return envelope.Result, nil
		}

		// Any other client error fails without retry.
		return nil, &GatewayError{
			Code:        errorCode(response.StatusCode(), envelope),
			Description: errorDescription(envelope),
			Transient:   false,
		}
	}
}

func decodeEnvelope(response *resty.Response) (*apiEnvelope, *GatewayError) {
	if response == nil {
		return nil, &GatewayError{Description: "empty response", Transient: true}
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(response.Body(), &envelope); err != nil {
		return nil, &GatewayError{
			Code:        response.StatusCode(),
			Description: "invalid_json",
			Transient:   isTransientHTTPStatus(response.StatusCode()),
			Cause:       err,
		}
	}
	return &envelope, nil
}

func errorCode(statusCode int, envelope *apiEnvelope) int {
	if envelope != nil && envelope.ErrorCode != 0 {
		return envelope.ErrorCode
	}
	return statusCode
}

func errorDescription(envelope *apiEnvelope) string {
	if envelope != nil && strings.TrimSpace(envelope.Description) != "" {
		return envelope.Description
	}
	return "unknown"
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		(statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	seconds := 1 << attempt
	return time.Duration(seconds) * time.Second
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ChatIDString renders a numeric chat id the way payloads expect it.
func ChatIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
