// Package rxnet adapts HTTP requests and WebSocket connections into
// observables. Every subscription performs its own request or dial, bound
// to the subscription context, so operators such as SwitchMap cancel work
// that is no longer needed.
package rxnet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/rx"
)

const maxErrorBody = 512

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("rxnet: %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("rxnet: %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// RequestOption adjusts outgoing requests.
type RequestOption func(*http.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// GetJSON performs a GET of url per subscription and emits the decoded body.
// A nil client uses http.DefaultClient.
func GetJSON[T any](client *http.Client, url string, opts ...RequestOption) rx.Observable[T] {
	return Do[T](client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		for _, opt := range opts {
			if opt != nil {
				opt(req)
			}
		}
		return req, nil
	})
}

// Do sends the request built by newRequest once per subscription and emits
// the JSON decoded response body.
func Do[T any](client *http.Client, newRequest func(ctx context.Context) (*http.Request, error)) rx.Observable[T] {
	if client == nil {
		client = http.DefaultClient
	}
	return rx.FromFunc(func(ctx context.Context) (T, error) {
		var out T
		req, err := newRequest(ctx)
		if err != nil {
			return out, fmt.Errorf("rxnet: build request: %w", err)
		}

		logger := logging.FromContext(ctx)
		started := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			return out, err
		}
		defer resp.Body.Close()
		logger.Debug("rxnet: response",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(started)),
		)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return out, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode, Body: string(body)}
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return out, fmt.Errorf("rxnet: decode %s: %w", req.URL, err)
		}
		return out, nil
	})
}

// Poll subscribes to src immediately and again on every tick of interval.
// A tick that arrives while src is still running cancels it.
func Poll[T any](interval time.Duration, src rx.Observable[T]) rx.Observable[T] {
	ticks := rx.StartWith(rx.Interval(interval), -1)
	return rx.SwitchMap(ticks, func(int) rx.Observable[T] {
		return src
	})
}

// DecodeJSON unmarshals every raw message into T. A message that does not
// decode ends the stream with an error.
func DecodeJSON[T any](src rx.Observable[[]byte]) rx.Observable[T] {
	return rx.MapErr(src, func(raw []byte) (T, error) {
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, fmt.Errorf("rxnet: decode message: %w", err)
		}
		return out, nil
	})
}
