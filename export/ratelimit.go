/*
	Timelinize
	Copyright (c) 2013 Matthew Holt

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package export

import (
	"net/http"
	"sync"
	"time"
)

// RateLimit describes a rate limit.
type RateLimit struct {
	RequestsPerHour int `json:"requests_per_hour,omitempty"`
	BurstSize       int `json:"burst_size,omitempty"`
}

// Enabled returns true if the rate limit restricts anything.
func (rl RateLimit) Enabled() bool { return rl.RequestsPerHour > 0 }

// interval returns the time between two tokens.
func (rl RateLimit) interval() time.Duration {
	secondsBetweenReqs := 60.0 / (float64(rl.RequestsPerHour) / 60.0)
	millisBetweenReqs := secondsBetweenReqs * 1000.0
	reqInterval := time.Duration(millisBetweenReqs) * time.Millisecond
	if reqInterval < minInterval {
		reqInterval = minInterval
	}
	return reqInterval
}

// RateLimitedTransport is an http.RoundTripper that waits for a token
// before each request. It must be closed when no longer needed.
type RateLimitedTransport struct {
	http.RoundTripper

	ticker    *time.Ticker
	token     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewRateLimitedTransport adds rate limiting to rt based on the rate
// limiting policy. If rt is nil, http.DefaultTransport is used. The
// first BurstSize requests (at least one) go through without waiting.
func NewRateLimitedTransport(rt http.RoundTripper, rl RateLimit) *RateLimitedTransport {
	if rt == nil {
		rt = http.DefaultTransport
	}
	burst := max(rl.BurstSize, 1)

	t := &RateLimitedTransport{
		RoundTripper: rt,
		ticker:       time.NewTicker(rl.interval()),
		token:        make(chan struct{}, burst),
		done:         make(chan struct{}),
	}
	for range burst {
		t.token <- struct{}{}
	}
	go func() {
		for {
			select {
			case <-t.ticker.C:
				select {
				case t.token <- struct{}{}:
				default: // bucket is full
				}
			case <-t.done:
				return
			}
		}
	}()

	return t
}

// RoundTrip satisfies http.RoundTripper.
func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	select {
	case <-t.token:
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
	return t.RoundTripper.RoundTrip(req)
}

// Close stops refilling tokens.
func (t *RateLimitedTransport) Close() error {
	t.closeOnce.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
	return nil
}

const minInterval = 100 * time.Millisecond
