// Package dashboard renders a live terminal UI for an active run.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/webtraffic/hitgen/internal/metrics"
)

// RunInfo holds run parameters for display.
type RunInfo struct {
	TargetURL string
	Rate      int
	Workers   int
	Total     int
	Duration  time.Duration
}

// Dashboard renders live run metrics with termui widgets.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid           *ui.Grid
	summaryPara    *widgets.Paragraph
	progressGauge  *widgets.Gauge
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	errorList      *widgets.List
	latencyHistory []float64
	info           RunInfo
	startTime      time.Time
}

// New creates a Dashboard. shutdownFunc is invoked when the user quits with
// q or Ctrl-C; it should trigger run cancellation.
func New(collector *metrics.Collector, info RunInfo, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		info:           info,
		startTime:      time.Now(),
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Progress"
	d.progressGauge.Percent = 0
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.errorList = widgets.NewList()
	d.errorList.Title = "Failures"
	d.errorList.Rows = []string{"No failures"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.2,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.2,
			ui.NewCol(1.0, d.progressGauge),
		),
		ui.NewRow(0.3,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.3,
			ui.NewCol(1.0, d.errorList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give the terminal time to restore.
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Wait for Stop() to cancel the context.
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.collector.Snapshot()

	if snap.RecentMeanLatency > 0 {
		d.latencyHistory = append(d.latencyHistory, snap.RecentMeanLatencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Recent: %.1fms | Min: %.1fms | Max: %.1fms",
			snap.RecentMeanLatencyMs, snap.MinLatencyMs, snap.MaxLatencyMs,
		)
	}

	d.progressGauge.Percent = progressPercent(snap, d.info, time.Since(d.startTime))
	d.progressGauge.Label = fmt.Sprintf("%.1f/s | %d hits", snap.RatePerSec, snap.Sent)

	successRate := 0.0
	if snap.Sent > 0 {
		successRate = float64(snap.Successes) / float64(snap.Sent) * 100
	}
	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\nRate: %d/s | Workers: %d\nElapsed: %s | Sent: %d | Success Rate: %.1f%%",
		d.info.TargetURL,
		d.info.Rate,
		d.info.Workers,
		snap.Elapsed.Round(time.Second),
		snap.Sent,
		successRate,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.1fms\nMean: %.1fms\nP50:  %.1fms\nP90:  %.1fms\nP99:  %.1fms",
		snap.MinLatencyMs, snap.MeanLatencyMs, snap.P50LatencyMs, snap.P90LatencyMs, snap.P99LatencyMs,
	)

	d.errorList.Rows = failureRows(snap)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	ui.Render(d.grid)
}

// progressPercent estimates completion: hit count against the total in finite
// mode, elapsed time against the duration otherwise.
func progressPercent(snap metrics.Snapshot, info RunInfo, elapsed time.Duration) int {
	pct := 0.0
	switch {
	case info.Total > 0:
		pct = float64(snap.Sent) / float64(info.Total) * 100
	case info.Duration > 0:
		pct = float64(elapsed) / float64(info.Duration) * 100
	}
	if pct > 100 {
		pct = 100
	}
	return int(pct)
}

func failureRows(snap metrics.Snapshot) []string {
	if len(snap.Errors) == 0 {
		return []string{"No failures"}
	}
	names := make([]string, 0, len(snap.Errors))
	for name := range snap.Errors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return snap.Errors[names[i]] > snap.Errors[names[j]]
	})
	rows := make([]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, fmt.Sprintf("%s: %d", metrics.FriendlyErrorName(name), snap.Errors[name]))
	}
	return rows
}
