package step

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/colorstring"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-testrail/testrail"
)

// CheckInput ...
type CheckInput struct {
	URL       string          `env:"TESTRAIL_URL,required"`
	Username  string          `env:"TESTRAIL_USERNAME,required"`
	Password  stepconf.Secret `env:"TESTRAIL_PASSWORD,required"`
	ProjectID int             `env:"TESTRAIL_PROJECT_ID"`

	RequestsPerMinute int  `env:"TESTRAIL_REQUESTS_PER_MINUTE"`
	MaxRetries        *int `env:"TESTRAIL_MAX_RETRIES"`
	Verbose           bool `env:"TESTRAIL_VERBOSE"`
}

// CheckConfig ...
type CheckConfig struct {
	Connection
	ProjectID int
}

// CheckResult ...
type CheckResult struct {
	Projects []testrail.Project
	User     *testrail.User
}

// TestRailChecker verifies the TestRail URL and credentials.
type TestRailChecker struct {
	inputParser   stepconf.InputParser
	logger        log.Logger
	clientFactory ClientFactory
}

// NewTestRailChecker ...
func NewTestRailChecker(inputParser stepconf.InputParser, logger log.Logger, clientFactory ClientFactory) TestRailChecker {
	return TestRailChecker{
		inputParser:   inputParser,
		logger:        logger,
		clientFactory: clientFactory,
	}
}

// ProcessConfig ...
func (s TestRailChecker) ProcessConfig() (CheckConfig, error) {
	var input CheckInput
	if err := s.inputParser.Parse(&input); err != nil {
		return CheckConfig{}, err
	}

	stepconf.Print(input)
	s.logger.Println()

	s.logger.EnableDebugLog(input.Verbose)

	connection, err := newConnection(input.URL, input.Username, input.Password, input.RequestsPerMinute, input.MaxRetries)
	if err != nil {
		return CheckConfig{}, err
	}
	if input.ProjectID < 0 {
		return CheckConfig{}, fmt.Errorf("invalid TESTRAIL_PROJECT_ID (%d), should be a positive number", input.ProjectID)
	}

	return CheckConfig{
		Connection: connection,
		ProjectID:  input.ProjectID,
	}, nil
}

// Run ...
func (s TestRailChecker) Run(ctx context.Context, cfg CheckConfig) (CheckResult, error) {
	client, err := s.clientFactory(cfg.ClientConfig(), s.logger)
	if err != nil {
		return CheckResult{}, err
	}

	s.logger.Infof("Connecting to %s", cfg.URL)

	projects, err := client.GetProjects(ctx)
	if errors.Is(err, testrail.ErrUnauthorized) {
		return CheckResult{}, authError(err)
	}
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to list projects: %w", err)
	}

	s.logger.Donef("Connected, %d project(s) available", len(projects))
	for _, project := range projects {
		s.logger.Printf("- %s (%d)", project.Name, project.ID)
	}

	result := CheckResult{Projects: projects}

	s.logger.Println()
	user, err := client.GetUserByEmail(ctx, cfg.Username)
	if err != nil {
		s.logger.Warnf("Failed to look up user %s: %s", cfg.Username, err)
	} else {
		result.User = &user
		s.logger.Donef("Authenticated as %s (%d)", colorstring.Magenta(user.Name), user.ID)
	}

	if cfg.ProjectID > 0 {
		if _, err := verifyProject(ctx, s.logger, client, cfg.ProjectID); err != nil {
			return result, err
		}
	}

	return result, nil
}
