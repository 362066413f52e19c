// Package noiseplot renders the residual noise of decrypted ciphertexts as an
// HTML histogram page.
package noiseplot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"medhe/bfv"
)

// Histogram counts the occurrences of every integer value between the smallest
// and the largest element of noise. It returns the bin labels and the counts.
func Histogram(noise []int64) (labels []string, counts []int) {
	if len(noise) == 0 {
		return nil, nil
	}

	lo, hi := noise[0], noise[0]
	for _, e := range noise {
		if e < lo {
			lo = e
		}
		if e > hi {
			hi = e
		}
	}

	counts = make([]int, hi-lo+1)
	for _, e := range noise {
		counts[e-lo]++
	}

	labels = make([]string, len(counts))
	for i := range labels {
		labels[i] = strconv.FormatInt(lo+int64(i), 10)
	}

	return labels, counts
}

// NewChart returns the histogram of noise, subtitled with report.
func NewChart(title string, noise []int64, report bfv.NoiseReport) *charts.Bar {

	labels, counts := Histogram(noise)

	items := make([]opts.BarData, len(counts))
	for i, c := range counts {
		items[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: report.String()}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("coefficients", items).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}))

	return bar
}

// Render writes to w a page with the noise histogram of cts.
func Render(w io.Writer, title string, dec *bfv.Decryptor, cts []*bfv.Ciphertext) error {

	if len(cts) == 0 {
		return fmt.Errorf("cannot Render: no ciphertext: %w", bfv.ErrShapeMismatch)
	}

	report, err := dec.NoiseReport(cts)
	if err != nil {
		return fmt.Errorf("cannot Render: %w", err)
	}

	var noise []int64
	for i, ct := range cts {
		e, err := dec.Noise(ct)
		if err != nil {
			return fmt.Errorf("cannot Render: ciphertext %d: %w", i, err)
		}
		noise = append(noise, e...)
	}

	page := components.NewPage()
	page.AddCharts(NewChart(title, noise, report))

	if err = page.Render(w); err != nil {
		return fmt.Errorf("cannot Render: %w", err)
	}
	return nil
}
