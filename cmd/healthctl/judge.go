package main

import (
	"github.com/spf13/cobra"

	"github.com/yanqian/health-journal/internal/domain/journal"
)

func newJudgeCmd(st *cliState) *cobra.Command {
	var originalPath, resultPath, update string
	cmd := &cobra.Command{
		Use:   "judge",
		Short: "Score a merged record against its original and update",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			original, err := readRecord(originalPath)
			if err != nil {
				return err
			}
			result, err := readRecord(resultPath)
			if err != nil {
				return err
			}
			svc, err := st.journalService()
			if err != nil {
				return err
			}
			resp := svc.JudgeHealthData(cmd.Context(), journal.JudgeRequest{
				OriginalData:     original,
				UpdateTranscript: update,
				ResultData:       result,
			})
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&originalPath, "original", "", "path to the record before the update")
	cmd.Flags().StringVar(&resultPath, "result", "", "path to the record after the update")
	cmd.Flags().StringVarP(&update, "update", "u", "", "update text that was applied")
	_ = cmd.MarkFlagRequired("original")
	_ = cmd.MarkFlagRequired("result")
	return cmd
}
