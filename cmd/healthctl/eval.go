package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yanqian/health-journal/internal/bootstrap"
	"github.com/yanqian/health-journal/internal/domain/evalsuite"
	"github.com/yanqian/health-journal/internal/domain/merge"
	"github.com/yanqian/health-journal/internal/infra/config"
)

var errScenariosFailed = errors.New("evaluation scenarios failed")

func newEvalCmd(st *cliState) *cobra.Command {
	var useLLM bool
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run the built-in merge scenarios and print a pass/fail table",
		Long: `Run every built-in scenario (additive, correction, removal, ambiguity,
units, clamping, preservation) through interpretation, merge and judging.
Exits with status 1 when any scenario fails.

Without --llm the rule interpreter and heuristic judge are used, so the run
is deterministic and needs no network.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if useLLM {
				if strings.TrimSpace(st.cfg.LLM.APIKey) == "" {
					return errors.New("--llm requires llm.apiKey (or LLM_API_KEY)")
				}
				st.cfg.Interpreter.Backend = config.BackendLLM
			} else {
				st.cfg.Interpreter.Backend = config.BackendRules
				st.cfg.LLM.APIKey = ""
			}

			client, err := bootstrap.ProvideChatClient(st.cfg, st.logger)
			if err != nil {
				return err
			}
			counter := bootstrap.ProvideTokenCounter(st.cfg, st.logger)
			interps := bootstrap.ProvideInterpreters(st.cfg, bootstrap.ProvideInterpreterConfig(st.cfg), client, counter, st.logger)
			judgeSvc := bootstrap.ProvideJudgeService(st.cfg, client, bootstrap.ProvideVerdictCache(st.cfg, st.logger), st.logger)

			runner := evalsuite.NewRunner(interps.Active, merge.NewEngine(st.logger), judgeSvc, st.logger)
			report := runner.Run(cmd.Context(), evalsuite.DefaultScenarios())
			printReport(cmd.OutOrStdout(), report)
			if !report.OK() {
				return errScenariosFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&useLLM, "llm", false, "use the configured model for interpretation and judging")
	return cmd
}

func printReport(w io.Writer, report evalsuite.Report) {
	pass := color.New(color.FgGreen, color.Bold)
	fail := color.New(color.FgRed, color.Bold)
	faint := color.New(color.Faint)

	fmt.Fprintf(w, "%s %s %s %s %s\n",
		padRight("STATUS", 6),
		padRight("CATEGORY", 13),
		padRight("SCENARIO", 34),
		padRight("SCORE", 7),
		"TIME")
	for _, res := range report.Results {
		status := pass.Sprint(padRight("PASS", 6))
		if !res.Passed {
			status = fail.Sprint(padRight("FAIL", 6))
		}
		score := "-"
		if res.Verdict != nil {
			score = fmt.Sprintf("%.1f", res.Verdict.Overall)
		}
		fmt.Fprintf(w, "%s %s %s %s %s\n",
			status,
			padRight(string(res.Scenario.Category), 13),
			padRight(truncate(res.Scenario.Name, 34), 34),
			padRight(score, 7),
			faint.Sprint(res.Duration.Round(time.Microsecond)))
		for _, p := range res.Problems {
			fmt.Fprintf(w, "       %s\n", faint.Sprint(p))
		}
	}

	total := report.Passed + report.Failed
	summary := fmt.Sprintf("%d/%d passed", report.Passed, total)
	if report.OK() {
		fmt.Fprintln(w, pass.Sprint(summary))
		return
	}
	fmt.Fprintln(w, fail.Sprint(summary))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}
