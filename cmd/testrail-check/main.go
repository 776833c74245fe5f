package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/steps-testrail/step"
	"github.com/bitrise-steplib/steps-testrail/testrail"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.NewLogger()

	if err := step.LoadDotEnv(logger, pathutil.NewPathChecker(), step.DotEnvFile); err != nil {
		logger.Errorf("%s", err)
		return 1
	}

	checker := step.NewTestRailChecker(stepconf.NewInputParser(env.NewRepository()), logger, testrail.NewClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := checker.ProcessConfig()
	if err != nil {
		logger.Errorf("Process config: %s", err)
		return 1
	}

	if _, err := checker.Run(ctx, config); err != nil {
		logger.Println()
		logger.Errorf("Connection check failed: %s", err)
		return 1
	}

	logger.Println()
	logger.Donef("TestRail connection is working")
	return 0
}
