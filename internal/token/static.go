package token

import (
	"context"
	"time"
)

// StaticSource always returns the same token string and models it as
// never expiring.
type StaticSource struct {
	Token string
}

func (s StaticSource) Fetch(ctx context.Context) (string, time.Duration, error) {
	return s.Token, 0, nil
}
