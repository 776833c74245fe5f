package step

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-testrail/testrail"
)

func authError(err error) error {
	return fmt.Errorf("authentication failed, check TESTRAIL_USERNAME and TESTRAIL_PASSWORD: %w", err)
}

func verifyProject(ctx context.Context, logger log.Logger, client testrail.Client, projectID int) (testrail.Project, error) {
	project, err := client.GetProject(ctx, projectID)
	if errors.Is(err, testrail.ErrUnauthorized) {
		return testrail.Project{}, authError(err)
	}
	if err != nil {
		return testrail.Project{}, fmt.Errorf("project %d not found: %w", projectID, err)
	}

	logger.Printf("Project: %s (%d)", project.Name, project.ID)
	return project, nil
}

// resolveSuite returns the configured suite or the first suite of the project.
func resolveSuite(ctx context.Context, logger log.Logger, client testrail.Client, project testrail.Project, suiteID int) (int, error) {
	if suiteID > 0 {
		logger.Printf("Suite: %d", suiteID)
		return suiteID, nil
	}

	suites, err := client.GetSuites(ctx, project.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list suites of project %d: %w", project.ID, err)
	}
	if len(suites) == 0 {
		return 0, fmt.Errorf("no suites found in project %d", project.ID)
	}

	suite := suites[0]
	if len(suites) > 1 {
		switch project.SuiteMode {
		case testrail.SuiteModeSingleBaselines:
			logger.Warnf("Project %d has %d baselines and TESTRAIL_SUITE_ID is not set, using %s", project.ID, len(suites)-1, suite.Name)
		case testrail.SuiteModeMultipleSuites:
			logger.Warnf("Project %d uses multiple suites (%d) and TESTRAIL_SUITE_ID is not set, using the first one", project.ID, len(suites))
		default:
			logger.Warnf("Project %d has %d suites and TESTRAIL_SUITE_ID is not set, using the first one", project.ID, len(suites))
		}
	}
	logger.Printf("Suite: %s (%d)", suite.Name, suite.ID)
	return suite.ID, nil
}
