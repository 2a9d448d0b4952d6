package main

import (
	"github.com/spf13/cobra"

	"github.com/yanqian/health-journal/internal/interface/mcp"
)

func newMCPCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve journal tools over MCP stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

AVAILABLE TOOLS:

  update_health_data   merge an update into a day record
  interpret_update     show the change directives for an update
  judge_health_data    score a merged record`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := st.journalService()
			if err != nil {
				return err
			}
			return mcp.NewServer(svc, st.logger).Serve(cmd.Context())
		},
	}
}
