package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanqian/health-journal/internal/bootstrap"
	"github.com/yanqian/health-journal/internal/domain/healthrecord"
	"github.com/yanqian/health-journal/internal/domain/journal"
	"github.com/yanqian/health-journal/internal/domain/merge"
	"github.com/yanqian/health-journal/internal/infra/blobstore"
	"github.com/yanqian/health-journal/internal/infra/config"
	"github.com/yanqian/health-journal/internal/infra/logrepo"
	apperrors "github.com/yanqian/health-journal/pkg/errors"
	"github.com/yanqian/health-journal/pkg/logger"
)

// cliState is shared by every subcommand; it is populated before RunE.
type cliState struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	st := &cliState{}
	root := &cobra.Command{
		Use:   "healthctl",
		Short: "Offline tools for the health journal",
		Long: `healthctl runs the health journal pipeline without the HTTP server.

EXAMPLES:

  healthctl merge --record day.json --update "actually slept 8 hours"
  healthctl merge --record day.json --update "it had cheese too" --policy most_recent
  healthctl judge --original before.json --result after.json --update "energy was 7"
  healthctl eval                 # rule interpreter, heuristic judge
  healthctl eval --llm           # configured model for both
  healthctl mcp                  # serve MCP tools over stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.load()
		},
	}
	root.PersistentFlags().StringVar(&st.configPath, "config", "", "config file (defaults to CONFIG_PATH or configs/config.yaml)")

	root.AddCommand(
		newMergeCmd(st),
		newJudgeCmd(st),
		newEvalCmd(st),
		newMCPCmd(st),
	)
	return root
}

func (s *cliState) load() error {
	var (
		cfg *config.Config
		err error
	)
	if s.configPath != "" {
		cfg, err = config.LoadFrom(s.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s.cfg = cfg
	if s.logger == nil {
		s.logger = logger.NewWithService("healthctl")
	}
	return nil
}

// journalService builds a stateless journal service: logs live in memory
// and audio is never persisted.
func (s *cliState) journalService() (journal.Service, error) {
	client, err := bootstrap.ProvideChatClient(s.cfg, s.logger)
	if err != nil {
		return nil, err
	}
	counter := bootstrap.ProvideTokenCounter(s.cfg, s.logger)
	interps := bootstrap.ProvideInterpreters(s.cfg, bootstrap.ProvideInterpreterConfig(s.cfg), client, counter, s.logger)
	judgeSvc := bootstrap.ProvideJudgeService(s.cfg, client, bootstrap.ProvideVerdictCache(s.cfg, s.logger), s.logger)

	var chat journal.ChatClient
	if client != nil {
		chat = client
	}
	return journal.NewService(
		journal.Config{
			ExtractModel:    s.cfg.LLM.Model,
			Temperature:     s.cfg.LLM.Temperature,
			ExtractTimeout:  s.cfg.Extraction.Timeout,
			TranscribeModel: s.cfg.LLM.TranscriptionModel,
		},
		interps.Active,
		interps.Rules,
		merge.NewEngine(s.logger),
		judgeSvc,
		logrepo.NewMemoryRepository(),
		blobstore.NewMemoryStorage(""),
		chat,
		s.logger,
	), nil
}

func readRecord(path string) (healthrecord.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return healthrecord.Record{}, fmt.Errorf("read record: %w", err)
	}
	record, err := healthrecord.Decode(data)
	if err != nil {
		return healthrecord.Record{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return record, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describeError appends coded details (ambiguity candidates, validation
// issues) so they reach the terminal.
func describeError(err error) error {
	code := apperrors.CodeOf(err)
	details := apperrors.DetailsOf(err)
	if code == "" || details == nil {
		return err
	}
	raw, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		return err
	}
	return fmt.Errorf("%w\ndetails: %s", err, raw)
}
