// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/CaptainASIC/FusionLoom/internal/model"
)

// Limited throttles Send to rpm requests per minute. rpm <= 0 returns a
// unchanged.
func Limited(a Adapter, rpm int) Adapter {
	if rpm <= 0 {
		return a
	}
	return &limitedAdapter{
		Adapter: a,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60), 1),
	}
}

type limitedAdapter struct {
	Adapter
	limiter *rate.Limiter
}

func (l *limitedAdapter) Send(ctx context.Context, text, modelName string, history []model.Message) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", &SendError{Provider: l.Name().DisplayName(), Err: fmt.Errorf("rate limit: %w", err)}
	}
	return l.Adapter.Send(ctx, text, modelName, history)
}

// Unwrap returns the throttled adapter.
func (l *limitedAdapter) Unwrap() Adapter {
	return l.Adapter
}

// AsPuller finds a Puller behind any wrappers.
func AsPuller(a Adapter) (Puller, bool) {
	for a != nil {
		if p, ok := a.(Puller); ok {
			return p, true
		}
		u, ok := a.(interface{ Unwrap() Adapter })
		if !ok {
			return nil, false
		}
		a = u.Unwrap()
	}
	return nil, false
}
