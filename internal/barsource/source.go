// Package barsource defines the inbound bar-fetch boundary the rest of the
// pipeline consumes, per SPEC_FULL section 6. The real network fetcher is
// out of scope; this package ships the interface, a store-backed
// implementation (which falls back to the teacher's adapted synthetic-bar
// generator only when the store's AllowSyntheticFallback is set), and an
// in-memory fixture implementation.
package barsource

import (
	"context"
	"time"

	"github.com/quartzline/goldintel/internal/barstore"
	"github.com/quartzline/goldintel/pkg/types"
)

// Source fetches OHLCV bars for symbol within [start,end] at interval.
// Missing data yields an empty slice, never an error.
type Source interface {
	Bars(ctx context.Context, symbol string, start, end time.Time, interval string) ([]types.Bar, error)
}

// StoreSource adapts a *barstore.Store into a Source, relying on the
// store's own synthetic-fallback gate rather than duplicating it here.
type StoreSource struct {
	Store *barstore.Store
}

// Bars loads bars from the store, ignoring interval (the store's relational
// schema is interval-less; SPEC_FULL's only supported interval is "1d").
func (s StoreSource) Bars(ctx context.Context, symbol string, start, end time.Time, interval string) ([]types.Bar, error) {
	return s.Store.LoadBars(ctx, symbol, start, end)
}

// FixtureSource serves a fixed, in-memory bar set keyed by symbol, for
// deterministic tests and offline demonstrations.
type FixtureSource struct {
	Series map[string][]types.Bar
}

// Bars returns the fixture's bars for symbol, filtered to [start,end].
func (f FixtureSource) Bars(ctx context.Context, symbol string, start, end time.Time, interval string) ([]types.Bar, error) {
	all := f.Series[symbol]
	out := make([]types.Bar, 0, len(all))
	for _, b := range all {
		if (b.Timestamp.Equal(start) || b.Timestamp.After(start)) &&
			(b.Timestamp.Equal(end) || b.Timestamp.Before(end)) {
			out = append(out, b)
		}
	}
	return out, nil
}
