package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/domain/search/request"
	retrievaluc "github.com/nightcity/oracle/internal/usecase/retrieval"
)

type queryOptions struct {
	corpora []string
	limit   int
}

func newQueryCmd(g *globals) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer one question and print the ranked documents as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.close()

			limit := opts.limit
			if limit == 0 {
				limit = g.cfg.Retrieval.MaxResults
			}
			return runQuery(ctx, cmd.OutOrStdout(), a.retrieval, strings.Join(args, " "), opts.corpora, limit)
		},
	}
	cmd.Flags().StringSliceVar(&opts.corpora, "corpus", nil, "search only these corpora (lore, timeline, slang)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum number of results (default retrieval.max_results)")
	return cmd
}

type queryOutput struct {
	Intent  string       `json:"intent"`
	Results []resultLine `json:"results"`
}

type resultLine struct {
	Title   string  `json:"title"`
	Summary string  `json:"summary"`
	Score   float64 `json:"score"`
}

func runQuery(
	ctx context.Context, w io.Writer, svc *retrievaluc.Service,
	text string, corpora []string, limit int,
) error {
	names := make([]domain.CorpusName, len(corpora))
	for i, c := range corpora {
		names[i] = domain.CorpusName(c)
	}
	req, err := request.New(text, names, limit)
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	ans, err := svc.Answer(ctx, &req)
	if err != nil {
		return fmt.Errorf("answer query: %w", err)
	}

	out := queryOutput{Intent: string(ans.Intent), Results: make([]resultLine, len(ans.Results))}
	for i := range ans.Results {
		r := &ans.Results[i]
		out.Results[i] = resultLine{Title: r.Title(), Summary: r.Summary(), Score: r.Score()}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
