// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package ratelimit gates outbound requests by a number of starts per time
// window and a number of requests in flight.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Limiter admits at most rate request starts within any window of length per
// and at most concurrent requests in flight. Waiters are served in FIFO order.
type Limiter struct {
	rate int
	per  time.Duration

	inflight *semaphore.Weighted
	// window serializes the bookkeeping of starts, starts is only touched while holding it
	window *semaphore.Weighted
	starts []time.Time
}

func New(rate int, per time.Duration, concurrent int) (*Limiter, error) {
	if rate <= 0 || concurrent <= 0 || per <= 0 {
		return nil, fmt.Errorf("invalid rate limit: rate=%d per=%s concurrent=%d", rate, per, concurrent)
	}
	return &Limiter{
		rate:     rate,
		per:      per,
		inflight: semaphore.NewWeighted(int64(concurrent)),
		window:   semaphore.NewWeighted(1),
		starts:   make([]time.Time, 0, rate),
	}, nil
}

// Acquire blocks until the caller may start a request. The returned function
// must be called once the request has completed. It is safe to call it more than once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if err := l.inflight.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := l.window.Acquire(ctx, 1); err != nil {
		l.inflight.Release(1)
		return nil, err
	}
	defer l.window.Release(1)

	if len(l.starts) == l.rate {
		if wait := time.Until(l.starts[0].Add(l.per)); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				l.inflight.Release(1)
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		l.starts = append(l.starts[:0], l.starts[1:]...)
	}
	l.starts = append(l.starts, time.Now())

	var once sync.Once
	return func() {
		once.Do(func() { l.inflight.Release(1) })
	}, nil
}
