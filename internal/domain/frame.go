package domain

import "time"

// FrameData is the per-frame coordinate oracle supplied by the price feed
// adapter. It is a pure function of the adapter's price history; the game
// engine reads it and never writes to it.
type FrameData struct {
	PriceToY func(price float64) float64
	TimeToX  func(t time.Time) float64

	// Marker coordinates are chart-relative, like PriceToY; consumers add
	// HeaderOffset themselves when placing things on the card.
	MarkerX     float64
	MarkerY     float64
	MarkerPrice float64

	MinPrice float64
	MaxPrice float64
	MinTime  time.Time
	MaxTime  time.Time

	ChartWidth   float64
	ChartHeight  float64
	HeaderOffset float64 // y offset from card top to chart area

	IsWinning bool
}
