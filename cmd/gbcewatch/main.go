// gbcewatch follows a running exchange feed and prints the board.
// Usage: go run ./cmd/gbcewatch --addr http://localhost:8080
//
// With --once it prints the current board over REST and exits; otherwise it
// streams boards over the websocket until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rickgao/stockexchange/internal/feed"
	"github.com/rickgao/stockexchange/internal/feedclient"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "feed base URL")
	once := flag.Bool("once", false, "print one board and exit")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	client := feedclient.NewClient(*addr, feedclient.WithLogger(logger))
	p := message.NewPrinter(language.English)

	if *once {
		board, err := client.Board(ctx)
		if err != nil {
			logger.Error("failed to fetch board", "error", err)
			os.Exit(1)
		}
		printBoard(os.Stdout, p, *board)
		return
	}

	h, err := client.Health(ctx)
	if err != nil {
		logger.Error("feed unreachable", "addr", *addr, "error", err)
		os.Exit(1)
	}
	logger.Info("connected", "instance", h.Instance, "status", h.Status, "version", h.Build.Version)

	err = client.Stream(ctx, func(b feed.Board) error {
		return printBoard(os.Stdout, p, b)
	})
	switch {
	case errors.Is(err, context.Canceled):
	case errors.Is(err, feedclient.ErrStreamClosed):
		logger.Info("feed closed the stream")
	default:
		logger.Error("stream failed", "error", err)
		os.Exit(1)
	}
}

func printBoard(w io.Writer, p *message.Printer, b feed.Board) error {
	status := "CLOSED"
	if b.Open {
		status = "OPEN"
	}
	fmt.Fprintf(w, "%s  %s  INDEX %s\n", b.Timestamp.Local().Format(time.TimeOnly), status, ratio(p, b.Index))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SYMBOL\tTYPE\tPRICE\tQUANTITY\tVOLUME\tYIELD\tP/E\t")
	for _, t := range b.Tickers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			t.Symbol,
			t.Type,
			t.Price,
			p.Sprintf("%d", t.Quantity),
			t.Volume,
			ratio(p, t.DividendYield),
			ratio(p, t.PERatio),
		)
	}
	return tw.Flush()
}

func ratio(p *message.Printer, v *float64) string {
	if v == nil {
		return "-"
	}
	return p.Sprintf("%.4f", *v)
}
