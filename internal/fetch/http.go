package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"sjsage522/pricecompare/helpers"
	"sjsage522/pricecompare/internal/pricing"
	apperrors "sjsage522/pricecompare/pkg/errors"
)

// maxBodySize caps how much of a page is read
const maxBodySize = 8 << 20

// get performs one GET and maps every failure onto a typed error. The body is
// converted to UTF-8.
func get(ctx context.Context, client *http.Client, req *http.Request, source pricing.Source) (string, error) {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return "", transportError(ctx, source, err)
	}
	defer resp.Body.Close()

	// Check for rate limiting
	if helpers.IsRateLimitStatus(resp.StatusCode) {
		return "", apperrors.NewRateLimit(source.String(), helpers.RetryAfter(resp.Header.Get("Retry-After"), 0))
	}

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewNetwork(source.String(), fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", transportError(ctx, source, fmt.Errorf("failed to read response body: %w", err))
	}

	content, err := helpers.DecodeToUTF8(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", apperrors.NewNetwork(source.String(), "decode body", err)
	}
	return content, nil
}

func transportError(ctx context.Context, source pricing.Source, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeout(source.String(), err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewTimeout(source.String(), err)
	}
	return apperrors.NewNetwork(source.String(), "request failed", err)
}
