package credentials

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Shared collapses concurrent lookups into one call to the wrapped
// provider. Results are not retained once the in-flight call returns.
// The shared call ignores the cancellation of whichever caller started it;
// each caller still stops waiting when its own ctx is done.
type Shared struct {
	inner Provider
	group singleflight.Group
}

func NewShared(inner Provider) *Shared {
	return &Shared{inner: inner}
}

func (s *Shared) APIKey(ctx context.Context) (string, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan("api-key", func() (interface{}, error) {
		return s.inner.APIKey(detached)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
