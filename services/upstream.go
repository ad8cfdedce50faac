package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/LovationAdmin/travel-planner-api/utils"
)

// RetryConfig controls retries against Serper and SerpAPI.
type RetryConfig struct {
	MaxRetries int
	RetryWait  time.Duration
	MaxWait    time.Duration
}

// DefaultRetryConfig retries twice with a short backoff; the whole plan
// request already waits on the LLM.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 2, RetryWait: 500 * time.Millisecond, MaxWait: 4 * time.Second}
}

// newRetryClient builds a retrying HTTP client around base.
func newRetryClient(base *http.Client, cfg RetryConfig, log zerolog.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	if base != nil {
		client.HTTPClient = base
	}
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = cfg.RetryWait
	client.RetryWaitMax = cfg.MaxWait
	client.Logger = &retryLogger{log: log}
	// hand the final response back instead of a generic "giving up" error
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// retryLogger adapts zerolog to retryablehttp.LeveledLogger.
type retryLogger struct {
	log zerolog.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.event(l.log.Error(), msg, keysAndValues)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.event(l.log.Debug(), msg, keysAndValues)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.event(l.log.Debug(), msg, keysAndValues)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.event(l.log.Warn(), msg, keysAndValues)
}

func (l *retryLogger) event(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		e = e.Str(key, utils.MaskString(fmt.Sprint(kv[i+1])))
	}
	e.Msg(msg)
}

// doJSON executes req and decodes a 200 response into out. Any other status
// becomes an *UpstreamError for service.
func doJSON(client *retryablehttp.Client, service string, req *retryablehttp.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return &UpstreamError{
			Service: service,
			Message: utils.MaskString(errors.Wrap(err, "request failed").Error()),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &UpstreamError{Service: service, Message: "failed to read response", Err: errors.Wrap(err, service)}
	}

	if resp.StatusCode != http.StatusOK {
		return handleHTTPError(service, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Service: service, Message: "failed to parse response", Err: errors.Wrap(err, service)}
	}
	return nil
}

// handleHTTPError maps a non-200 upstream response to an error.
func handleHTTPError(service string, statusCode int, body []byte) error {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &errResp)

	msg := errResp.Message
	if msg == "" {
		msg = errResp.Error
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	upstreamErr := &UpstreamError{
		Service:    service,
		StatusCode: statusCode,
		Message:    utils.MaskString(msg),
	}
	if statusCode == http.StatusTooManyRequests {
		upstreamErr.Err = ErrRateLimited
	}
	return upstreamErr
}
