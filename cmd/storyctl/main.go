// Command storyctl - офлайн клиент историй: генерация, подбор иллюстраций, чтение вслух и голосовой ввод темы.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storybook-server/internal/catalog"
	"storybook-server/internal/config"
	"storybook-server/internal/logger"
	"storybook-server/internal/metrics"
)

// app - общее состояние команд: настройки, логгер и каталог.
type app struct {
	settings settings
	verbose  bool

	log     *zap.Logger
	catalog *catalog.Catalog
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "storyctl",
		Short: "Storybook command line client",
		Long: `storyctl generates illustrated children's stories without the HTTP server.

Generation settings are read from the same environment as the server
(GENERATION_MODE, AI_PROVIDER, ...). CLI settings use the STORYCTL_ prefix.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		a.charactersCmd(),
		a.generateCmd(),
		a.libraryCmd(),
		a.classifyCmd(),
		a.readCmd(),
		a.listenCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	a.settings = s

	level := s.LogLevel
	if a.verbose {
		level = "debug"
	}
	// Вывод команд идет в stdout, поэтому логи пишутся в stderr
	log, err := logger.New(logger.Config{Level: level, Encoding: "console", OutputPath: "stderr"})
	if err != nil {
		return err
	}
	a.log = log

	a.catalog = catalog.NewBuiltin()
	if s.CatalogFile != "" {
		if err := a.catalog.ReloadFile(s.CatalogFile); err != nil {
			return fmt.Errorf("failed to load catalog file: %w", err)
		}
	}
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	defer a.log.Sync()
	if a.settings.PushgatewayURL == "" {
		return nil
	}
	if err := metrics.Push(a.settings.PushgatewayURL, "storyctl"); err != nil {
		// Метрики не должны ломать результат команды
		a.log.Warn("Failed to push metrics", zap.Error(err))
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
