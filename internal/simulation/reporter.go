package simulation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const separator = "----------------------------------------------------------------------"

// Reporter periodically prints the ticker board.
type Reporter struct {
	interval time.Duration
	market   Market
	out      io.Writer
	printer  *message.Printer
	logger   *slog.Logger

	mu sync.Mutex // one report at a time on out

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// DefaultReportInterval is the report period used when none is given.
const DefaultReportInterval = 5 * time.Second

// NewReporter creates a reporter writing to out.
func NewReporter(interval time.Duration, market Market, out io.Writer, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	return &Reporter{
		interval: interval,
		market:   market,
		out:      out,
		printer:  message.NewPrinter(language.English),
		logger:   logger,
	}
}

// Start prints the banner and begins the report loop.
func (r *Reporter) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.mu.Lock()
	fmt.Fprintf(r.out, "%s\nWelcome to the Global Beverage Corporation Exchange!\n%s\n", separator, separator)
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run()

	r.logger.Info("reporter started", "interval", r.interval)
	return nil
}

// Stop gracefully shuts down the reporter.
func (r *Reporter) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("reporter stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reporter) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if err := r.Report(); err != nil {
				r.logger.Warn("failed to write report", "err", err)
			}
		}
	}
}

// Report writes the index and one row per listed stock.
func (r *Reporter) Report() error {
	var b strings.Builder

	b.WriteString(r.printer.Sprintf("INDEX\t: %s\n", r.number(r.market.AllShareIndex())))

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SYMBOL\tPRICE\tQUANTITY\tVOLUME[MLN]\tYIELD\tP/E\t")
	for _, stock := range r.market.Listing() {
		s := r.market.Watch(stock)
		volume := math.NaN()
		if !s.Volume.IsUndefined() {
			volume = s.Volume.Float64() / 1e6
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			stock.Symbol,
			s.Price,
			r.printer.Sprintf("%d", s.Quantity),
			r.number(volume),
			r.number(stock.DividendYield(s.Price)),
			r.number(stock.PERatio(s.Price)),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	b.WriteString(separator + "\n")

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := io.WriteString(r.out, b.String())
	return err
}

// number renders v with four decimals and digit grouping, "-" for NaN.
func (r *Reporter) number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return r.printer.Sprintf("%.4f", v)
}
