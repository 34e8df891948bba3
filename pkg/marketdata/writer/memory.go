package writer

import (
	"sync"

	"github.com/rxtech-lab/argo-dsl/internal/types"
)

// MemoryWriter collects bars into a column-oriented series.
type MemoryWriter struct {
	mu   sync.Mutex
	bars *types.Bars
}

// NewMemoryWriter creates a writer collecting bars for ticker.
func NewMemoryWriter(ticker string) *MemoryWriter {
	return &MemoryWriter{
		mu:   sync.Mutex{},
		bars: types.NewBars(ticker),
	}
}

// Initialize resets the collected series.
func (w *MemoryWriter) Initialize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.bars = types.NewBars(w.bars.Ticker)

	return nil
}

// Write appends a bar.
func (w *MemoryWriter) Write(bar types.Bar) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.bars.Append(bar)

	return nil
}

// Finalize is a no-op. The path is always empty.
func (w *MemoryWriter) Finalize() (string, error) {
	return "", nil
}

// Close is a no-op.
func (w *MemoryWriter) Close() error {
	return nil
}

// Bars returns the collected series.
func (w *MemoryWriter) Bars() *types.Bars {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.bars
}
