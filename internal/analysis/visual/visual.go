// Package visual renders backtest runs as echarts HTML pages and, when a
// headless Chrome is available, as PNG screenshots.
package visual

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	talib "github.com/markcheno/go-talib"

	"scalpbot/internal/market"
	"scalpbot/internal/pkg/numeric"
)

// EquityPoint is the balance right after a position settled.
type EquityPoint struct {
	Time    time.Time
	Balance float64
}

// TradeMark pins an entry or exit on the price chart.
type TradeMark struct {
	Time  time.Time
	Price float64
	Side  market.Side
	Exit  bool
}

type BacktestInput struct {
	Symbol   string
	Strategy string
	Candles  []market.Candle
	Equity   []EquityPoint
	Trades   []TradeMark
	// BollingerPeriod overlays bands on the price chart when > 1.
	BollingerPeriod int
	BollingerK      float64
}

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
	colorBand          = "#3b82f6"
	colorMiddle        = "#fbbf24"
	colorEquity        = "#a78bfa"

	chartWidthPx   = 1600
	klineHeightPx  = 600
	volumeHeightPx = 220
	equityHeightPx = 320
)

// ErrNoCandles is returned when there is nothing to draw.
var ErrNoCandles = errors.New("no candles to render")

// BuildBacktestHTML renders price, volume and equity charts on one page.
func BuildBacktestHTML(input BacktestInput) ([]byte, error) {
	if len(input.Candles) == 0 {
		return nil, ErrNoCandles
	}
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s %s backtest", strings.ToUpper(input.Symbol), input.Strategy)
	page.SetLayout(components.PageFlexLayout)

	xAxis := buildXAxis(input.Candles)
	kline := buildPriceChart(input, xAxis)
	volume := buildVolumeChart(xAxis, input.Candles)
	page.AddCharts(kline, volume)
	if len(input.Equity) > 0 {
		page.AddCharts(buildEquityChart(input.Equity))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PageHeight is the viewport height that fits every chart of the page.
func PageHeight(input BacktestInput) int {
	h := klineHeightPx + volumeHeightPx
	if len(input.Equity) > 0 {
		h += equityHeightPx
	}
	return h
}

func buildPriceChart(input BacktestInput, xAxis []string) *charts.Kline {
	minPrice, maxPrice := priceBounds(input.Candles)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1e-8, math.Abs(maxPrice)*0.01)
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", klineHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTitleOpts(opts.Title{
			Title:         strings.ToUpper(input.Symbol),
			Subtitle:      fmt.Sprintf("%s | %d candles | %d trades", input.Strategy, len(input.Candles), countEntries(input.Trades)),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			SplitNumber: 10,
			AxisLabel:   &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine:   &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			Min:       numeric.Round(minPrice-padding, 8),
			Max:       numeric.Round(maxPrice+padding, 8),
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)
	kline.SetXAxis(xAxis)
	kline.AddSeries("price", buildKlineSeries(input.Candles),
		charts.WithMarkPointNameCoordItemOpts(tradeMarkPoints(input.Trades)...),
	)
	if input.BollingerPeriod > 1 {
		bands := buildBandLine(input.Candles, input.BollingerPeriod, input.BollingerK)
		bands.SetXAxis(xAxis)
		kline.Overlap(bands)
	}
	return kline
}

func buildXAxis(candles []market.Candle) []string {
	x := make([]string, len(candles))
	for i, c := range candles {
		x[i] = c.Time().UTC().Format("01-02 15:04")
	}
	return x
}

func buildKlineSeries(candles []market.Candle) []opts.KlineData {
	data := make([]opts.KlineData, 0, len(candles))
	for _, c := range candles {
		data = append(data, opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}})
	}
	return data
}

func tradeMarkPoints(trades []TradeMark) []opts.MarkPointNameCoordItem {
	out := make([]opts.MarkPointNameCoordItem, 0, len(trades))
	for _, t := range trades {
		name := "open " + strings.ToLower(string(t.Side))
		if t.Exit {
			name = "close"
		}
		out = append(out, opts.MarkPointNameCoordItem{
			Name:       name,
			Coordinate: []interface{}{t.Time.UTC().Format("01-02 15:04"), t.Price},
			Symbol:     "pin",
			SymbolSize: 20,
		})
	}
	return out
}

func buildBandLine(candles []market.Candle, period int, k float64) *charts.Line {
	line := charts.NewLine()
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	var upper, middle, lower []float64
	if len(closes) >= period {
		upper, middle, lower = talib.BBands(closes, period, k, k, talib.SMA)
	}
	line.AddSeries("upper", toLineData(upper, len(candles), period), charts.WithLineStyleOpts(opts.LineStyle{Color: colorBand, Width: 1}))
	line.AddSeries("sma", toLineData(middle, len(candles), period), charts.WithLineStyleOpts(opts.LineStyle{Color: colorMiddle, Width: 1}))
	line.AddSeries("lower", toLineData(lower, len(candles), period), charts.WithLineStyleOpts(opts.LineStyle{Color: colorBand, Width: 1}))
	return line
}

func buildVolumeChart(xAxis []string, candles []market.Candle) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", volumeHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Volume", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			SplitNumber: 6,
			AxisLabel:   &opts.AxisLabel{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	vols := make([]opts.BarData, len(candles))
	for i, c := range candles {
		color := colorBear
		if c.Close >= c.Open {
			color = colorBull
		}
		vols[i] = opts.BarData{
			Value: c.Volume,
			ItemStyle: &opts.ItemStyle{
				Color:   color,
				Opacity: opts.Float(0.6),
			},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Volume", vols)
	return bar
}

func buildEquityChart(points []EquityPoint) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", equityHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Balance", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
	)
	x := make([]string, len(points))
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		x[i] = p.Time.UTC().Format("01-02 15:04")
		data[i] = opts.LineData{Value: numeric.Round(p.Balance, 4)}
	}
	line.SetXAxis(x).AddSeries("balance", data,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line
}

// toLineData blanks the talib warm-up prefix so lines start where the
// indicator becomes defined.
func toLineData(series []float64, length, warmup int) []opts.LineData {
	line := make([]opts.LineData, length)
	for i := range line {
		if i < warmup-1 || i >= len(series) || math.IsNaN(series[i]) {
			line[i] = opts.LineData{Value: nil}
			continue
		}
		line[i] = opts.LineData{Value: numeric.Round(series[i], 8)}
	}
	return line
}

func countEntries(trades []TradeMark) int {
	n := 0
	for _, t := range trades {
		if !t.Exit {
			n++
		}
	}
	return n
}

func priceBounds(candles []market.Candle) (minVal, maxVal float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	minVal = candles[0].Low
	maxVal = candles[0].High
	for _, c := range candles {
		if c.Low < minVal {
			minVal = c.Low
		}
		if c.High > maxVal {
			maxVal = c.High
		}
	}
	return minVal, maxVal
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable probes for a Chrome binary once per process.
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		defer cancel()
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

// RenderPNG screenshots an HTML page in headless Chrome.
func RenderPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return nil, fmt.Errorf("headless chrome unavailable: %w", err)
	}
	if width <= 0 {
		width = chartWidthPx
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
