package writer

import (
	"github.com/rxtech-lab/argo-dsl/internal/types"
)

// MarketDataWriter receives the bars a provider downloads.
type MarketDataWriter interface {
	// Initialize sets up the writer, potentially creating tables or files.
	Initialize() error
	// Write persists a single bar.
	Write(bar types.Bar) error
	// Finalize completes the writing process and returns where the data ended up.
	// Writers that keep data in memory return an empty path.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
}
