package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/avast/retry-go/v4"
	apperrors "github.com/mantonx/watchlist/internal/errors"
)

// imageSize is the provider rendition downloaded for every image
const imageSize = "w500"

// download fetches the image bytes. Client errors other than 429 are not
// retried.
func (c *Cache) download(ctx context.Context, remotePath string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s%s", c.baseURL, imageSize, remotePath)

	var data []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.client.Do(req)
			if err != nil {
				return apperrors.NewNetworkError("image download", 0, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				netErr := apperrors.NewNetworkError("image download", resp.StatusCode, nil).With("url", url)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Unrecoverable(netErr)
				}
				return netErr
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return apperrors.NewNetworkError("image download", resp.StatusCode, err)
			}
			data = body
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.retries)),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying image download", "attempt", n+1, "url", url, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return data, nil
}
