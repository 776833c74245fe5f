package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitrise-io/go-steputils/v2/export"
	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-steputils/v2/stepenv"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/steps-testrail/discovery"
	"github.com/bitrise-steplib/steps-testrail/output"
	"github.com/bitrise-steplib/steps-testrail/step"
	"github.com/bitrise-steplib/steps-testrail/testaddon"
	"github.com/bitrise-steplib/steps-testrail/testrail"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.NewLogger()
	pathChecker := pathutil.NewPathChecker()

	if err := step.LoadDotEnv(logger, pathChecker, step.DotEnvFile); err != nil {
		logger.Errorf("%s", err)
		return 1
	}

	envRepository := env.NewRepository()
	commandFactory := command.NewFactory(envRepository)
	fileExporter := export.NewExporter(commandFactory)
	testAddonExporter := testaddon.NewExporter(testaddon.NewTestAddon(logger, commandFactory, fileutil.NewFileManager()))
	outputExporter := output.NewExporter(stepenv.NewRepository(envRepository), logger, &fileExporter, testAddonExporter)

	syncer := step.NewTestRailSyncer(
		stepconf.NewInputParser(envRepository),
		logger,
		pathChecker,
		discovery.NewDiscoverer(logger, pathChecker),
		testrail.NewClient,
		outputExporter,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := syncer.ProcessConfig()
	if err != nil {
		logger.Errorf("Process config: %s", err)
		return 1
	}

	result, err := syncer.Run(ctx, config)
	syncer.Export(result)
	if err != nil {
		logger.Println()
		logger.Errorf("Sync failed: %s", err)
		return 1
	}

	logger.Println()
	logger.Donef("Sync finished")
	return 0
}
