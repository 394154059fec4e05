// Package httpx holds small helpers shared by the HTTP-based clients.
package httpx

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobdigest/internal/model"
)

// maxErrorBody caps how much of an error response is echoed into errors.
const maxErrorBody = 512

// ParseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// StatusError converts a non-2xx response into a *model.HTTPError so retry
// logic can inspect it. The caller still owns resp.Body.
func StatusError(resp *http.Response, op string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	var err error
	if msg == "" {
		err = fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	} else {
		err = fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, msg)
	}
	return &model.HTTPError{
		StatusCode: resp.StatusCode,
		RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
		Err:        err,
	}
}
