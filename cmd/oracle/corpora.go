package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	corpusuc "github.com/nightcity/oracle/internal/usecase/corpus"
)

func newCorporaCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "corpora",
		Short: "Load the configured corpora and report their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.close()
			return printStatuses(cmd.OutOrStdout(), a.corpora.Statuses())
		},
	}
}

type corpusLine struct {
	Name       string     `json:"name"`
	Loaded     bool       `json:"loaded"`
	Documents  int        `json:"documents"`
	Dimensions int        `json:"dimensions,omitempty"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
}

func printStatuses(w io.Writer, statuses []corpusuc.Status) error {
	lines := make([]corpusLine, len(statuses))
	for i, st := range statuses {
		lines[i] = corpusLine{
			Name:       string(st.Corpus),
			Loaded:     st.Loaded,
			Documents:  st.Documents,
			Dimensions: st.Dimension,
		}
		if st.Loaded {
			at := st.LoadedAt.UTC()
			lines[i].LoadedAt = &at
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(lines); err != nil {
		return fmt.Errorf("write statuses: %w", err)
	}
	return nil
}
