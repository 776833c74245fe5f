package step

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/steps-testrail/testrail"
)

const (
	defaultTestDir        = "tests"
	defaultJUnitFile      = "test-results.xml"
	defaultRunName        = "Test Run"
	defaultRunDescription = "Automated test run from pytest"
)

// ClientFactory creates the TestRail client once the configuration is processed.
type ClientFactory func(config testrail.Config, logger log.Logger) (testrail.Client, error)

// Connection ...
type Connection struct {
	URL               string
	Username          string
	Password          stepconf.Secret
	RequestsPerMinute int
	MaxRetries        int
}

// ClientConfig ...
func (c Connection) ClientConfig() testrail.Config {
	return testrail.Config{
		BaseURL:           c.URL,
		Username:          c.Username,
		Password:          string(c.Password),
		RequestsPerMinute: c.RequestsPerMinute,
		MaxRetries:        c.MaxRetries,
	}
}

func newConnection(url, username string, password stepconf.Secret, requestsPerMinute int, maxRetries *int) (Connection, error) {
	normalizedURL, err := testrail.NormalizeBaseURL(url)
	if err != nil {
		return Connection{}, err
	}
	if strings.TrimSpace(username) == "" {
		return Connection{}, errors.New("TESTRAIL_USERNAME is empty")
	}
	if strings.TrimSpace(string(password)) == "" {
		return Connection{}, errors.New("TESTRAIL_PASSWORD is empty")
	}
	if requestsPerMinute < 0 {
		return Connection{}, fmt.Errorf("invalid TESTRAIL_REQUESTS_PER_MINUTE (%d), should be positive", requestsPerMinute)
	}
	if requestsPerMinute == 0 {
		requestsPerMinute = testrail.DefaultRequestsPerMinute
	}
	retries := testrail.DefaultMaxRetries
	if maxRetries != nil {
		retries = *maxRetries
	}
	if retries < 0 {
		return Connection{}, fmt.Errorf("invalid TESTRAIL_MAX_RETRIES (%d), should not be negative", retries)
	}

	return Connection{
		URL:               normalizedURL,
		Username:          username,
		Password:          password,
		RequestsPerMinute: requestsPerMinute,
		MaxRetries:        retries,
	}, nil
}

func validateProject(projectID, suiteID int) error {
	if projectID <= 0 {
		return fmt.Errorf("invalid TESTRAIL_PROJECT_ID (%d), should be a positive number", projectID)
	}
	if suiteID < 0 {
		return fmt.Errorf("invalid TESTRAIL_SUITE_ID (%d), should be a positive number", suiteID)
	}
	return nil
}

func validateTestDir(pathChecker pathutil.PathChecker, testDir string) (string, error) {
	if testDir == "" {
		testDir = defaultTestDir
	}

	exists, err := pathChecker.IsDirExists(testDir)
	if err != nil {
		return "", fmt.Errorf("failed to check TESTRAIL_TEST_DIR (%s): %w", testDir, err)
	}
	if !exists {
		return "", fmt.Errorf("TESTRAIL_TEST_DIR (%s) does not exist", testDir)
	}
	return testDir, nil
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
