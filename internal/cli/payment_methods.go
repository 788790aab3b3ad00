package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"backoffice/internal/config"
	"backoffice/internal/fudo"
	"backoffice/internal/models"
	"backoffice/internal/sales"
)

// discardSaleLogs satisfies the submitter for read-only commands.
type discardSaleLogs struct{}

func (discardSaleLogs) InsertSaleLog(context.Context, models.SaleLog) error { return nil }

func NewPaymentMethodsCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "payment-methods",
		Short: "List external POS payment methods and the resolved cashier map",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runPaymentMethods(ctx, config.AppEnv, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall request timeout")
	return cmd
}

func runPaymentMethods(ctx context.Context, cfg config.Config, out io.Writer) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ledger, err := newLedger(cfg, logger)
	if err != nil {
		return err
	}
	methods, err := ledger.ListPaymentMethods(ctx)
	if err != nil {
		return fmt.Errorf("list payment methods: %w", err)
	}

	submitter, err := sales.NewSubmitter(sales.SubmitterDeps{
		Ledger:             ledger,
		SaleLogs:           discardSaleLogs{},
		Logger:             logger,
		ExcludedPaymentTag: cfg.FudoExcludedTag,
	})
	if err != nil {
		return err
	}
	resolved, err := submitter.PaymentMethods(ctx)
	if err != nil {
		return fmt.Errorf("resolve payment methods: %w", err)
	}

	return printPaymentMethods(out, methods, resolved)
}

func printPaymentMethods(out io.Writer, methods []fudo.PaymentMethod, resolved map[string]string) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tNAME\tACTIVE")
	for _, m := range methods {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", m.ID, m.Code, m.Name, m.Active)
	}
	fmt.Fprintln(w)

	keys := make([]string, 0, len(resolved))
	for k := range resolved {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "CASHIER KEY\tEXTERNAL ID")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, resolved[k])
	}
	return w.Flush()
}
