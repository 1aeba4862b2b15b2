// Package chart renders PNG price charts for screened tickers.
package chart

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"BreakoutSentinel/internal/model"
)

// RenderCloses renders a close-price line chart with a 10-day MA overlay.
// Returns raw PNG bytes.
func RenderCloses(ticker string, bars []model.Bar) ([]byte, error) {
	if len(bars) < 2 {
		return nil, fmt.Errorf("need at least 2 bars for %s, got %d", ticker, len(bars))
	}

	xValues := make([]time.Time, len(bars))
	closeY := make([]float64, len(bars))
	for i, b := range bars {
		xValues[i] = b.Date
		closeY[i] = b.Close
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name: "Close",
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex("2563eb"),
				StrokeWidth: 2.0,
			},
			XValues: xValues,
			YValues: closeY,
		},
	}

	// MA10 overlay, skipping the NaN warmup head.
	var maX []time.Time
	var maY []float64
	for _, b := range bars {
		if math.IsNaN(b.MA10) {
			continue
		}
		maX = append(maX, b.Date)
		maY = append(maY, b.MA10)
	}
	if len(maY) >= 2 {
		series = append(series, chart.TimeSeries{
			Name: "MA10",
			Style: chart.Style{
				StrokeColor:     drawing.ColorFromHex("9ca3af"),
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{5.0, 3.0},
			},
			XValues: maX,
			YValues: maY,
		})
	}

	graph := chart.Chart{
		Title:  ticker,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %s chart: %w", ticker, err)
	}
	return buf.Bytes(), nil
}
