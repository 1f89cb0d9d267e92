// Command mapper launches one Mapper process against a running Chrome
// instance's CDP websocket endpoint and speaks BiDi over stdin/stdout, the
// same role chromedp's own _example binaries play for exercising a browser
// session by hand.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chromedp/bidimapper/internal/mapper"
	"github.com/chromedp/bidimapper/internal/stdiotransport"
)

var (
	cdpEndpoint string
	verbose     bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapper",
		Short: "WebDriver BiDi gateway for a CDP-speaking browser",
		Long: `mapper connects to a browser's CDP websocket endpoint, translates the
browser's Target/Page/Network/Runtime protocol traffic into WebDriver BiDi,
and speaks that BiDi session over stdin/stdout.`,
		RunE: runMapper,
	}
	cmd.Flags().StringVar(&cdpEndpoint, "cdp-url", "", "CDP websocket endpoint (e.g. ws://127.0.0.1:9222/devtools/browser/<id>)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging to stderr")
	cmd.MarkFlagRequired("cdp-url")
	return cmd
}

func runMapper(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logf := func(format string, v ...interface{}) {
		logger.Debug(fmt.Sprintf(format, v...))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m, err := mapper.New(ctx, cdpEndpoint, logf)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cdpEndpoint, err)
	}

	transport := stdiotransport.New(os.Stdin, os.Stdout, logf)
	m.Attach(transport)

	runErr := make(chan error, 1)
	go func() { runErr <- transport.Run() }()

	logger.Info("mapper ready", slog.String("cdp_url", cdpEndpoint))

	startErr := make(chan error, 1)
	go func() { startErr <- m.Start(ctx) }()

	select {
	case err := <-runErr:
		return err
	case err := <-startErr:
		return err
	case <-ctx.Done():
		return nil
	}
}
