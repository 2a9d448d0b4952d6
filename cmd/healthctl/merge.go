package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanqian/health-journal/internal/domain/interpreter"
	"github.com/yanqian/health-journal/internal/domain/journal"
	apperrors "github.com/yanqian/health-journal/pkg/errors"
)

func newMergeCmd(st *cliState) *cobra.Command {
	var (
		recordPath string
		update     string
		policy     string
	)
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Apply an update to a record file and print the merged record",
		Long: `Interpret an update against a JSON day record and print the merged record
together with the applied changes, skipped directives and clamp warnings.

EXAMPLES:

  healthctl merge --record day.json --update "also had coffee"
  healthctl merge -r day.json -u "it had cheese too" --policy most_recent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if policy != "" {
				switch interpreter.AmbiguityPolicy(policy) {
				case interpreter.AmbiguityFail, interpreter.AmbiguityMostRecent:
					st.cfg.Interpreter.AmbiguityPolicy = policy
				default:
					return fmt.Errorf("--policy must be fail or most_recent, got %q", policy)
				}
			}
			record, err := readRecord(recordPath)
			if err != nil {
				return err
			}
			svc, err := st.journalService()
			if err != nil {
				return err
			}
			resp, err := svc.UpdateHealthData(cmd.Context(), journal.UpdateRequest{
				OriginalData:     record,
				UpdateTranscript: update,
			})
			if apperrors.IsCode(err, journal.CodeAmbiguousReference) && policy == "" {
				return fmt.Errorf("%w\nhint: name the entry or rerun with --policy most_recent", describeError(err))
			}
			if err != nil {
				return describeError(err)
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVarP(&recordPath, "record", "r", "", "path to the JSON day record")
	cmd.Flags().StringVarP(&update, "update", "u", "", "update text")
	cmd.Flags().StringVar(&policy, "policy", "", "ambiguity policy: fail or most_recent (defaults to config)")
	_ = cmd.MarkFlagRequired("record")
	_ = cmd.MarkFlagRequired("update")
	return cmd
}
