package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	maxAttempts = 4
	// Longest Retry-After we are willing to sit out.
	maxRetryAfter = 30 * time.Second
)

// orsError is a non-2xx answer from OpenRouteService.
type orsError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *orsError) Error() string {
	return fmt.Sprintf("ors status %d: %s", e.Status, e.Message)
}

func (e *orsError) temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// readORSError builds an orsError from resp. ORS wraps messages as
// {"error":{"code":N,"message":"..."}} or {"error":"..."}; anything else is
// kept as plain text.
func readORSError(resp *http.Response) *orsError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &orsError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}

	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil && len(env.Error) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		var text string
		switch {
		case json.Unmarshal(env.Error, &detail) == nil && detail.Message != "":
			e.Message = detail.Message
		case json.Unmarshal(env.Error, &text) == nil && text != "":
			e.Message = text
		}
	}

	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		e.RetryAfter = min(time.Duration(secs)*time.Second, maxRetryAfter)
	}
	return e
}

func shouldRetry(err error) bool {
	var oe *orsError
	if errors.As(err, &oe) {
		return oe.temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// retryDelay is the wait before the next attempt: the server's Retry-After
// when it asks for longer than our own backoff.
func retryDelay(err error, backoff time.Duration) time.Duration {
	var oe *orsError
	if errors.As(err, &oe) && oe.RetryAfter > backoff {
		return oe.RetryAfter
	}
	return backoff
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// postJSON sends in to path under the base URL and decodes the answer into
// out. Each attempt waits for the rate limiter; network failures, 429 and
// 5xx are retried with doubling backoff.
func (o *ORSDistanceProvider) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	backoff := o.retryBackoff
	for attempt := 1; ; attempt++ {
		err = o.postOnce(ctx, o.baseURL+path, body, out)
		if err == nil || !shouldRetry(err) || attempt == maxAttempts || ctx.Err() != nil {
			return err
		}
		if werr := sleep(ctx, retryDelay(err, backoff)); werr != nil {
			return werr
		}
		backoff *= 2
	}
}

func (o *ORSDistanceProvider) postOnce(ctx context.Context, url string, body []byte, out any) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.session.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return readORSError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
