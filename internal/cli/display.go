package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"backoffice/internal/config"
	"backoffice/internal/screen"
)

const reconnectDelay = 2 * time.Second

type displayOptions struct {
	URL  string
	Code string
}

// NewDisplayCommand runs a customer display in the terminal. Each view change
// is printed as one JSON line; "on <optionId>" and "off <optionId>" on stdin
// act as customer taps.
func NewDisplayCommand() *cobra.Command {
	opts := &displayOptions{}

	cmd := &cobra.Command{
		Use:   "display",
		Short: "Pair a customer display with a cashier session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDisplay(ctx, opts, config.AppEnv, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "http://localhost:8080", "POS API base url")
	cmd.Flags().StringVar(&opts.Code, "code", "", "pairing code shown on the cashier screen")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

func runDisplay(ctx context.Context, opts *displayOptions, cfg config.Config, in io.Reader, out io.Writer) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := screen.NewStreamClient(opts.URL, opts.Code, &http.Client{})
	if err != nil {
		return err
	}

	printer := &viewPrinter{out: out}
	display := screen.NewDisplay(screen.DisplayDeps{
		Networked:   true,
		ThanksDelay: cfg.DisplayThanksDelay,
		OnChange:    printer.print,
		Send: func(msg screen.Message) {
			sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := client.SendToggle(sendCtx, msg.OptionID, msg.Active); err != nil {
				logger.Warn("toggle relay failed", zap.String("option", msg.OptionID), zap.Error(err))
			}
		},
	})
	printer.print(display.View())

	go readTaps(in, display)

	for {
		paired := false
		err := client.Stream(ctx, func(msg screen.Message) {
			if !paired {
				paired = true
				_ = display.Pair(opts.Code)
			}
			display.Handle(msg)
		})
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, screen.ErrSessionNotFound) {
			logger.Warn("unknown pairing code; still connecting", zap.String("code", opts.Code))
		} else if err != nil {
			logger.Warn("display stream interrupted", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func readTaps(in io.Reader, display *screen.Display) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "on":
			display.Toggle(fields[1], true)
		case "off":
			display.Toggle(fields[1], false)
		}
	}
}

type viewPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *viewPrinter) print(view screen.DisplayView) {
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, string(data))
}
