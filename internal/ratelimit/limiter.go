package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// API represents the different external APIs we interact with
type API string

const (
	// APIYahoo represents the Yahoo Finance quoteSummary and listing pages
	APIYahoo API = "yahoo"
	// APIAlphaVantage represents the AlphaVantage API
	APIAlphaVantage API = "alphavantage"
	// APITranslate represents the Google translate endpoint
	APITranslate API = "translate"
)

// DefaultRates returns conservative requests-per-second values per API.
func DefaultRates() map[API]float64 {
	return map[API]float64{
		// Unofficial endpoint; a couple of requests per second stays clear of 429s
		APIYahoo: 2,
		// AlphaVantage: 5 requests per minute on free tier = 1 request every 12 seconds
		APIAlphaVantage: 1.0 / 12.0,
		APITranslate:    5,
	}
}

// Limiter manages rate limits for different APIs
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New builds a limiter from requests-per-second values. A rate of zero or
// less leaves that API unlimited.
func New(rates map[API]float64) *Limiter {
	l := &Limiter{limiters: make(map[API]*rate.Limiter, len(rates))}
	for api, rps := range rates {
		l.Set(api, rps)
	}
	return l
}

// Set replaces the rate for api.
func (l *Limiter) Set(api API, rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rps <= 0 {
		delete(l.limiters, api)
		return
	}
	l.limiters[api] = rate.NewLimiter(rate.Limit(rps), 1)
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	limiter := l.get(api)
	if limiter == nil {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

func (l *Limiter) get(api API) *rate.Limiter {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiters[api]
}
