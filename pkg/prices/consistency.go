package prices

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// FetchConsistent issues n concurrent fetches and requires every body to be
// byte-for-byte identical. It returns the first response on success.
func (f *Fetcher) FetchConsistent(ctx context.Context, n int) (*Response, error) {
	if n < 1 {
		return nil, fmt.Errorf("consistency check needs at least one fetch, got %d", n)
	}

	responses := make([]*Response, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			resp, err := f.FetchPrices(gctx)
			if err != nil {
				return fmt.Errorf("fetch %d/%d: %w", i+1, n, err)
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	first := responses[0]
	for i, resp := range responses[1:] {
		if !bytes.Equal(first.Body, resp.Body) {
			f.log.WarnObj("prices payloads differ", "consistency_error", map[string]any{
				"endpoint":     f.endpoint,
				"fetch":        i + 2,
				"first_bytes":  len(first.Body),
				"differ_bytes": len(resp.Body),
			})
			return nil, fmt.Errorf("%w: fetch 1 and fetch %d differ", ErrInconsistent, i+2)
		}
	}
	return first, nil
}
