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
	"github.com/bitrise-steplib/steps-testrail/fileremover"
	"github.com/bitrise-steplib/steps-testrail/output"
	"github.com/bitrise-steplib/steps-testrail/pytest"
	"github.com/bitrise-steplib/steps-testrail/step"
	"github.com/bitrise-steplib/steps-testrail/testaddon"
	"github.com/bitrise-steplib/steps-testrail/testrail"
)

const python = "python3"

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

	exporter := createExporter(logger, pathChecker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := exporter.ProcessConfig()
	if err != nil {
		logger.Errorf("Process config: %s", err)
		return 1
	}

	if err := exporter.InstallDeps(config.RunTests); err != nil {
		logger.Errorf("Install dependencies: %s", err)
		return 1
	}

	result, err := exporter.Run(ctx, config)
	exporter.Export(config, result)
	if err != nil {
		logger.Println()
		logger.Errorf("Export failed: %s", err)
		return 1
	}
	if result.TestsFailed {
		logger.Println()
		logger.Errorf("Results exported, but pytest reported failing tests")
		return 1
	}

	logger.Println()
	logger.Donef("Export finished")
	return 0
}

func createExporter(logger log.Logger, pathChecker pathutil.PathChecker) step.TestRailExporter {
	envRepository := env.NewRepository()
	commandFactory := command.NewFactory(envRepository)

	fileExporter := export.NewExporter(commandFactory)
	testAddonExporter := testaddon.NewExporter(testaddon.NewTestAddon(logger, commandFactory, fileutil.NewFileManager()))
	outputExporter := output.NewExporter(stepenv.NewRepository(envRepository), logger, &fileExporter, testAddonExporter)

	return step.NewTestRailExporter(
		stepconf.NewInputParser(envRepository),
		logger,
		pathChecker,
		fileremover.NewFileRemover(pathChecker),
		pytest.NewDependencyManager(logger, commandFactory, python),
		pytest.NewCommandRunner(logger, commandFactory, python),
		testrail.NewClient,
		outputExporter,
	)
}
