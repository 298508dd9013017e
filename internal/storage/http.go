package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/coremint/coremint/internal/utils"
	"github.com/coremint/coremint/internal/version"
	"github.com/imroc/req/v3"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const (
	HeaderClientVersion = "X-Coremint-Version"
	HeaderDeviceID      = "X-Coremint-Device-Id"
	HeaderPayer         = "X-Payer"
	HeaderSignature     = "X-Signature"
)

// newHTTPClient builds the client shared by the HTTP backends. Retries are disabled,
// a failed upload is reported to the caller as is.
func newHTTPClient(timeout time.Duration) *req.Client {
	c := req.C().
		SetCommonRetryCount(0).
		SetUserAgent(version.UserAgent()).
		SetCommonHeader(HeaderClientVersion, version.Version).
		SetCommonHeader(HeaderDeviceID, utils.HWID).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

// throttle is a client-side request limiter. A nil throttle never blocks.
type throttle struct {
	limiter *limiter.Limiter
	key     string
}

func newThrottle(key, formattedRate string) (*throttle, error) {
	if formattedRate == "" {
		return nil, nil
	}
	rate, err := limiter.NewRateFromFormatted(formattedRate)
	if err != nil {
		return nil, fmt.Errorf("rate limit %q: %w", formattedRate, err)
	}
	return &throttle{
		limiter: limiter.New(memory.NewStore(), rate),
		key:     key,
	}, nil
}

// Wait blocks until a request slot is free or ctx is done.
func (t *throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	for {
		lctx, err := t.limiter.Get(ctx, t.key)
		if err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		if !lctx.Reached {
			return nil
		}

		wait := time.Until(time.Unix(lctx.Reset, 0))
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
