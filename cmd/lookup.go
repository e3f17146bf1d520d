package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
	"github.com/JakeFAU/dhc-order-crawler/internal/server"
)

type lookupOptions struct {
	caseType string
	number   int
	year     int
}

func newLookupCmd() *cobra.Command {
	opts := &lookupOptions{}
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolves a single case and prints it as JSON",
		Long: `Resolves one case type, number and filing year against the portal and
prints the record. Order documents are archived as during a crawl; the
record itself is not stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLookupCommand(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.caseType, "type", "", "case type code, e.g. \"CS(COMM)\"")
	cmd.Flags().IntVar(&opts.number, "number", 0, "case number")
	cmd.Flags().IntVar(&opts.year, "year", 0, "filing year")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("number")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func (o *lookupOptions) validate() error {
	if strings.TrimSpace(o.caseType) == "" {
		return errors.New("--type is required")
	}
	if o.number <= 0 {
		return errors.New("--number must be > 0")
	}
	if o.year <= 0 {
		return errors.New("--year must be > 0")
	}
	return nil
}

func runLookupCommand(cmd *cobra.Command, opts *lookupOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	app, err := server.Build(ctx, rt.cfg, rt.logger, server.ScopeLookup)
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}
	defer app.Close()

	token, err := app.Tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtain session token: %w", err)
	}
	query := crawler.CaseQuery{
		CaseType:   opts.caseType,
		CaseNumber: opts.number,
		FilingYear: opts.year,
		Token:      token,
	}
	record, err := app.Resolver.Resolve(ctx, query)
	if err != nil {
		return fmt.Errorf("resolve %s (%s): %w", query.CaseInfo(), crawler.KindOf(err), err)
	}
	record.CaseInfo = query.CaseInfo()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}
