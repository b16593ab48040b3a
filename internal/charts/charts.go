package charts

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ivanoskov/sg_finance_bot/internal/service"
)

var ErrNoData = errors.New("no expenses to chart")

var sliceColors = []drawing.Color{
	{R: 0xF4, G: 0x8F, B: 0x42, A: 0xFF},
	{R: 0x42, G: 0x85, B: 0xF4, A: 0xFF},
	{R: 0x34, G: 0xA8, B: 0x53, A: 0xFF},
	{R: 0xEA, G: 0x43, B: 0x35, A: 0xFF},
	{R: 0x9E, G: 0x9E, B: 0x9E, A: 0xFF},
}

// ChartGenerator renders spending charts as PNG images
type ChartGenerator struct {
	width  int
	height int
}

// NewChartGenerator creates a generator for square charts
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{width: 800, height: 800}
}

// CategoryPie draws the share of each category in the summary.
func (g *ChartGenerator) CategoryPie(summary service.Summary) ([]byte, error) {
	if summary.Empty() || len(summary.Categories) == 0 {
		return nil, ErrNoData
	}

	values := make([]chart.Value, 0, len(summary.Categories))
	for i, cat := range summary.Categories {
		amount, _ := cat.Amount.Float64()
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: $%s (%s%%)", cat.Category, cat.Amount.StringFixed(2), cat.Share.StringFixed(1)),
			Value: amount,
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
				FillColor: sliceColors[i%len(sliceColors)],
			},
		})
	}

	pie := chart.PieChart{
		Title:  fmt.Sprintf("Spending by category (total $%s)", summary.Total.StringFixed(2)),
		Width:  g.width,
		Height: g.height,
		Values: values,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render category pie chart: %w", err)
	}
	return buffer.Bytes(), nil
}
