package client

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/cloo-solutions/cardsmith/internal/preprocess"
)

// ProviderEstimate is one row of the estimate command.
type ProviderEstimate struct {
	Provider      string  `json:"provider"`
	TotalTokens   int     `json:"total_tokens"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// EstimateCmd prices a local document for every provider, or one.
func EstimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate <file>",
		Short: "Estimate tokens and generation cost for a local document",
		Long:  "Preprocesses the document locally and prices the resulting chunks for each cost provider.",
		Args:  cobra.ExactArgs(1),
		RunE:  runEstimate,
	}

	addPipelineFlags(cmd)
	cmd.Flags().Bool("raw", false, "Price the extracted text instead of the filtered chunks")

	return cmd
}

func runEstimate(cmd *cobra.Command, args []string) error {
	outputJSON, _ := cmd.Flags().GetBool("output")
	raw, _ := cmd.Flags().GetBool("raw")
	subject, _ := cmd.Flags().GetString("subject")

	pipeline, cfg, err := localPipeline(cmd)
	if err != nil {
		return err
	}

	text, err := readDocument(args[0], cfg.PreserveParagraphs)
	if err != nil {
		return err
	}

	tokens := preprocess.EstimateTokens(text)
	if !raw {
		tokens = pipeline.Preprocess(text, domain.ParseSubject(subject)).TotalTokens
	}

	providers := preprocess.DefaultCostTable().Providers()
	if cmd.Flags().Changed("provider") {
		providers = []string{pipeline.Config().Provider}
	}

	estimates := make([]ProviderEstimate, 0, len(providers))
	for _, provider := range providers {
		cost, err := pipeline.Estimator().CostForTokens(tokens, provider)
		if err != nil {
			return err
		}
		estimates = append(estimates, ProviderEstimate{Provider: provider, TotalTokens: tokens, EstimatedCost: cost})
	}

	if outputJSON {
		return printJSON(cmd.OutOrStdout(), estimates)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tTOKENS\tCOST")
	for _, e := range estimates {
		fmt.Fprintf(tw, "%s\t%d\t$%.6f\n", e.Provider, e.TotalTokens, e.EstimatedCost)
	}
	return tw.Flush()
}
