// Package ticksource defines the inbound tick boundary SPEC_FULL section 6
// calls for: a JSON document carrying price and the two-sided score, with
// indicator fields optional. The real live feed is out of scope; this
// package ships the interface, a JSON-decoding document type, and one
// deterministic implementation (fixture-file).
package ticksource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/pkg/types"
)

// Tick is one polled reading of price plus the scoring pipeline's output.
// Absence of Price (nil) means "no update" for this poll.
type Tick struct {
	Price     *decimal.Decimal `json:"price"`
	ScoreLong decimal.Decimal  `json:"score_long"`
	ScoreShort decimal.Decimal `json:"score_short"`
	Trend     *types.Trend     `json:"trend,omitempty"`
	Session   *types.Session   `json:"session,omitempty"`
	RSI       *decimal.Decimal `json:"rsi,omitempty"`
	Stoch     *decimal.Decimal `json:"stoch,omitempty"`
	ATR       *decimal.Decimal `json:"atr,omitempty"`
}

// Source polls for the next tick. A nil tick with ok=false means "no
// update available right now", not an error.
type Source interface {
	Next(ctx context.Context, now time.Time) (tick *Tick, ok bool, err error)
}

// FileSource replays a fixed sequence of ticks read from a JSON array file,
// one per Next call, for --test mode and offline fixtures.
type FileSource struct {
	mu     sync.Mutex
	ticks  []Tick
	cursor int
}

// NewFileSource reads path as a JSON array of Tick documents.
func NewFileSource(path string) (*FileSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ticksource: read fixture %s: %w", path, err)
	}
	var ticks []Tick
	if err := json.Unmarshal(raw, &ticks); err != nil {
		return nil, fmt.Errorf("ticksource: parse fixture %s: %w", path, err)
	}
	return &FileSource{ticks: ticks}, nil
}

// Next returns the next fixture tick, or ok=false once exhausted.
func (f *FileSource) Next(ctx context.Context, now time.Time) (*Tick, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor >= len(f.ticks) {
		return nil, false, nil
	}
	t := f.ticks[f.cursor]
	f.cursor++
	if t.Price == nil {
		return nil, false, nil
	}
	return &t, true, nil
}
