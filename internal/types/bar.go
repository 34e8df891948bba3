package types

import "time"

// Bar is one OHLCV aggregate.
type Bar struct {
	Time   time.Time `csv:"time"`
	Symbol string    `csv:"symbol"`
	Open   float64   `csv:"open"`
	High   float64   `csv:"high"`
	Low    float64   `csv:"low"`
	Close  float64   `csv:"close"`
	Volume float64   `csv:"volume"`
}

// Bar field names as they appear in a strategy's data environment.
const (
	FieldOpen      = "open"
	FieldHigh      = "high"
	FieldLow       = "low"
	FieldClose     = "close"
	FieldVolume    = "volume"
	FieldTimestamp = "timestamp"
)

// FieldNames lists the series of Bars in a fixed order.
var FieldNames = []string{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume, FieldTimestamp}

// Bars is a column-oriented series of bars for one ticker.
// Timestamp holds Unix milliseconds.
type Bars struct {
	Ticker    string
	Open      []float64
	High      []float64
	Low       []float64
	Close     []float64
	Volume    []float64
	Timestamp []float64
}

// NewBars creates an empty series for ticker.
func NewBars(ticker string) *Bars {
	return &Bars{
		Ticker:    ticker,
		Open:      []float64{},
		High:      []float64{},
		Low:       []float64{},
		Close:     []float64{},
		Volume:    []float64{},
		Timestamp: []float64{},
	}
}

// Append adds a bar to the end of the series.
func (b *Bars) Append(bar Bar) {
	b.Open = append(b.Open, bar.Open)
	b.High = append(b.High, bar.High)
	b.Low = append(b.Low, bar.Low)
	b.Close = append(b.Close, bar.Close)
	b.Volume = append(b.Volume, bar.Volume)
	b.Timestamp = append(b.Timestamp, float64(bar.Time.UnixMilli()))
}

// Len returns the number of bars.
func (b *Bars) Len() int {
	return len(b.Close)
}

// Field returns the series with the given name.
func (b *Bars) Field(name string) ([]float64, bool) {
	switch name {
	case FieldOpen:
		return b.Open, true
	case FieldHigh:
		return b.High, true
	case FieldLow:
		return b.Low, true
	case FieldClose:
		return b.Close, true
	case FieldVolume:
		return b.Volume, true
	case FieldTimestamp:
		return b.Timestamp, true
	default:
		return nil, false
	}
}

// Time returns the open time of bar i.
func (b *Bars) Time(i int) time.Time {
	return time.UnixMilli(int64(b.Timestamp[i])).UTC()
}
