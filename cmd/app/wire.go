//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/health-journal/internal/bootstrap"
	"github.com/yanqian/health-journal/internal/domain/merge"
	"github.com/yanqian/health-journal/internal/infra/config"
	httpiface "github.com/yanqian/health-journal/internal/interface/http"
	"github.com/yanqian/health-journal/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		bootstrap.ProvideChatClient,
		bootstrap.ProvideTokenCounter,
		bootstrap.ProvideInterpreterConfig,
		bootstrap.ProvideInterpreters,
		bootstrap.ProvideVerdictCache,
		bootstrap.ProvideJudgeService,
		merge.NewEngine,
		provideJournalConfig,
		provideLogRepository,
		provideBlobStore,
		provideJournalService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
