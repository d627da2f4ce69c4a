package httpx

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arxtrus/bootes/types"
)

// StatusError classifies a completed response. 2xx yields nil. 429 yields a
// typed RATE_LIMIT error carrying the Retry-After hint. Any other status
// yields a plain error for the caller to wrap into its NETWORK_ERROR
// message.
func StatusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		var retryAfter time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return types.RateLimit("API rate limit exceeded", retryAfter)
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
	detail := strings.TrimSpace(string(b))
	if detail == "" {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, detail)
}
