package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type exportedStanding struct {
	Rank       int    `json:"rank"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
}

type exportedItem struct {
	Name  string             `json:"name"`
	Queue []exportedStanding `json:"queue"`
}

// NewExportCommand prints every queue.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print every item queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()

			seq := e.svc.ListAll(context.Background())
			if opts.Format == "text" {
				out, _, err := e.render.ItemList(seq)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}

			items := make([]exportedItem, 0)
			for q, err := range seq {
				if err != nil {
					return err
				}
				item := exportedItem{Name: q.Item.Name, Queue: make([]exportedStanding, 0, len(q.Standings))}
				for _, st := range q.Standings {
					item.Queue = append(item.Queue, exportedStanding{Rank: st.Rank, Name: st.Member.Name, ExternalID: st.Member.ExternalID})
				}
				items = append(items, item)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"items": items})
		},
	}
}
