package step

import (
	"context"
	"fmt"
	"time"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/stringutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/steps-testrail/fileremover"
	"github.com/bitrise-steplib/steps-testrail/junit"
	"github.com/bitrise-steplib/steps-testrail/output"
	"github.com/bitrise-steplib/steps-testrail/pytest"
	"github.com/bitrise-steplib/steps-testrail/testrail"
)

const (
	runNameTimeLayout   = "2006-01-02 15:04:05"
	reportTestName      = "pytest"
	pytestOutputTailLen = 20
)

// ExportInput ...
type ExportInput struct {
	URL       string          `env:"TESTRAIL_URL,required"`
	Username  string          `env:"TESTRAIL_USERNAME,required"`
	Password  stepconf.Secret `env:"TESTRAIL_PASSWORD,required"`
	ProjectID int             `env:"TESTRAIL_PROJECT_ID,required"`
	SuiteID   int             `env:"TESTRAIL_SUITE_ID"`
	TestDir   string          `env:"TESTRAIL_TEST_DIR"`
	JUnitFile string          `env:"TESTRAIL_JUNIT_FILE"`

	RunName        string `env:"TESTRAIL_RUN_NAME"`
	RunDescription string `env:"TESTRAIL_RUN_DESCRIPTION"`

	StatusPassed  int `env:"TESTRAIL_STATUS_PASSED"`
	StatusFailed  int `env:"TESTRAIL_STATUS_FAILED"`
	StatusError   int `env:"TESTRAIL_STATUS_ERROR"`
	StatusSkipped int `env:"TESTRAIL_STATUS_SKIPPED"`

	RunTests      bool   `env:"TESTRAIL_RUN_TESTS"`
	PytestOptions string `env:"TESTRAIL_PYTEST_OPTIONS"`

	RequestsPerMinute int  `env:"TESTRAIL_REQUESTS_PER_MINUTE"`
	MaxRetries        *int `env:"TESTRAIL_MAX_RETRIES"`
	Verbose           bool `env:"TESTRAIL_VERBOSE"`

	DeployDir string `env:"BITRISE_DEPLOY_DIR"`
}

// ExportConfig ...
type ExportConfig struct {
	Connection
	ProjectID int
	SuiteID   int
	TestDir   string
	JUnitFile string

	RunName        string
	RunDescription string
	Statuses       StatusMapping

	RunTests   bool
	PytestArgs []string

	DeployDir string
}

// ExportResult ...
type ExportResult struct {
	ReportParsed bool
	TestsFailed  bool
	Outcomes     junit.Summary

	RunID     int
	RunURL    string
	Submitted int
	Unmapped  int
}

// TestRailExporter reports the results of a JUnit report as a new TestRail run.
type TestRailExporter struct {
	inputParser     stepconf.InputParser
	logger          log.Logger
	pathChecker     pathutil.PathChecker
	fileRemover     fileremover.FileRemover
	pytestInstaller pytest.DependencyInstaller
	pytestRunner    pytest.Runner
	clientFactory   ClientFactory
	outputExporter  output.Exporter
	now             func() time.Time
}

// NewTestRailExporter ...
func NewTestRailExporter(inputParser stepconf.InputParser, logger log.Logger, pathChecker pathutil.PathChecker, fileRemover fileremover.FileRemover, pytestInstaller pytest.DependencyInstaller, pytestRunner pytest.Runner, clientFactory ClientFactory, outputExporter output.Exporter) TestRailExporter {
	return TestRailExporter{
		inputParser:     inputParser,
		logger:          logger,
		pathChecker:     pathChecker,
		fileRemover:     fileRemover,
		pytestInstaller: pytestInstaller,
		pytestRunner:    pytestRunner,
		clientFactory:   clientFactory,
		outputExporter:  outputExporter,
		now:             time.Now,
	}
}

// ProcessConfig ...
func (s TestRailExporter) ProcessConfig() (ExportConfig, error) {
	var input ExportInput
	if err := s.inputParser.Parse(&input); err != nil {
		return ExportConfig{}, err
	}

	stepconf.Print(input)
	s.logger.Println()

	s.logger.EnableDebugLog(input.Verbose)

	connection, err := newConnection(input.URL, input.Username, input.Password, input.RequestsPerMinute, input.MaxRetries)
	if err != nil {
		return ExportConfig{}, err
	}
	if err := validateProject(input.ProjectID, input.SuiteID); err != nil {
		return ExportConfig{}, err
	}

	statuses := StatusMapping{
		Passed:  input.StatusPassed,
		Failed:  input.StatusFailed,
		Error:   input.StatusError,
		Skipped: input.StatusSkipped,
	}
	for _, status := range []int{statuses.Passed, statuses.Failed, statuses.Error, statuses.Skipped} {
		if status < 0 {
			return ExportConfig{}, fmt.Errorf("invalid TestRail status id (%d), should be a positive number", status)
		}
	}

	cfg := ExportConfig{
		Connection:     connection,
		ProjectID:      input.ProjectID,
		SuiteID:        input.SuiteID,
		TestDir:        valueOrDefault(input.TestDir, defaultTestDir),
		JUnitFile:      valueOrDefault(input.JUnitFile, defaultJUnitFile),
		RunName:        valueOrDefault(input.RunName, defaultRunName),
		RunDescription: valueOrDefault(input.RunDescription, defaultRunDescription),
		Statuses:       statuses.withDefaults(),
		RunTests:       input.RunTests,
		DeployDir:      input.DeployDir,
	}

	if cfg.RunTests {
		if cfg.TestDir, err = validateTestDir(s.pathChecker, input.TestDir); err != nil {
			return ExportConfig{}, err
		}
		if cfg.PytestArgs, err = pytest.Args(cfg.TestDir, cfg.JUnitFile, input.PytestOptions); err != nil {
			return ExportConfig{}, err
		}
		return cfg, nil
	}

	exists, err := s.pathChecker.IsPathExists(cfg.JUnitFile)
	if err != nil {
		return ExportConfig{}, fmt.Errorf("failed to check TESTRAIL_JUNIT_FILE (%s): %w", cfg.JUnitFile, err)
	}
	if !exists {
		return ExportConfig{}, fmt.Errorf("JUnit XML file not found: %s", cfg.JUnitFile)
	}

	return cfg, nil
}

// InstallDeps ...
func (s TestRailExporter) InstallDeps(runTests bool) error {
	if !runTests {
		return nil
	}

	if _, err := s.pytestInstaller.Install(); err != nil {
		return fmt.Errorf("an error occurred during installing pytest: %w", err)
	}
	s.logger.Println()

	return nil
}

// Run ...
func (s TestRailExporter) Run(ctx context.Context, cfg ExportConfig) (ExportResult, error) {
	var result ExportResult

	if cfg.RunTests {
		testsFailed, err := s.runTests(cfg)
		result.TestsFailed = testsFailed
		if err != nil {
			return result, err
		}
	}

	s.logger.Infof("Parsing JUnit report: %s", cfg.JUnitFile)

	testResults, err := junit.ParseFile(cfg.JUnitFile)
	if err != nil {
		return result, err
	}
	result.ReportParsed = true
	result.Outcomes = junit.Summarize(testResults)

	if len(testResults) == 0 {
		s.logger.Warnf("No test results found in %s", cfg.JUnitFile)
	} else {
		failed := 0
		for _, testResult := range testResults {
			if testResult.Failed() {
				failed++
			}
		}
		s.logger.Printf("Found %d test result(s), %d failed", len(testResults), failed)
	}
	s.logger.Println()

	client, err := s.clientFactory(cfg.ClientConfig(), s.logger)
	if err != nil {
		return result, err
	}

	s.logger.Infof("Exporting results to TestRail")

	project, err := verifyProject(ctx, s.logger, client, cfg.ProjectID)
	if err != nil {
		return result, err
	}
	suiteID, err := resolveSuite(ctx, s.logger, client, project, cfg.SuiteID)
	if err != nil {
		return result, err
	}

	index, err := loadCaseIndex(ctx, client, project.ID, suiteID)
	if err != nil {
		return result, err
	}

	mapped, caseIDs, unmapped := s.mapResults(testResults, index)
	result.Unmapped = unmapped

	run, err := client.AddRun(ctx, project.ID, testrail.NewRun{
		SuiteID:     suiteID,
		Name:        fmt.Sprintf("%s - %s", cfg.RunName, s.now().Format(runNameTimeLayout)),
		Description: cfg.RunDescription,
		IncludeAll:  false,
		CaseIDs:     caseIDs,
	})
	if err != nil {
		return result, fmt.Errorf("failed to create test run: %w", err)
	}
	result.RunID = run.ID
	result.RunURL = client.RunURL(run.ID)
	s.logger.Donef("Created test run: %s (%d) with %d case(s)", run.Name, run.ID, len(caseIDs))

	for _, m := range mapped {
		if _, err := client.AddResultForCase(ctx, run.ID, m.caseID, newResult(m.result, cfg.Statuses)); err != nil {
			s.logger.Errorf("Export aborted after %d of %d result(s)", result.Submitted, len(mapped))
			return result, fmt.Errorf("failed to add result for %s: %w", m.result.Name, err)
		}
		result.Submitted++
		s.logger.Debugf("- %s: %s", m.result.CaseTitle(), m.result.Outcome)
	}

	s.logger.Println()
	s.logger.Donef("Submitted %d result(s), %d test(s) without a TestRail case", result.Submitted, result.Unmapped)
	s.logger.Printf("Test run: %s", result.RunURL)

	return result, nil
}

// runTests runs pytest to produce the JUnit report. Failing tests are not an error,
// the report is exported first and the step fails afterwards.
func (s TestRailExporter) runTests(cfg ExportConfig) (bool, error) {
	s.logger.Infof("Running tests")

	removed, err := s.fileRemover.RemoveIfExists(cfg.JUnitFile)
	if err != nil {
		return false, fmt.Errorf("failed to remove previous report (%s): %w", cfg.JUnitFile, err)
	}
	if removed {
		s.logger.Printf("Removed previous report: %s", cfg.JUnitFile)
	}

	out, err := s.pytestRunner.Run("", cfg.PytestArgs)
	if err == nil {
		return false, nil
	}
	if out.TestsFailed() {
		s.logger.Warnf("pytest reported failing tests")
		return true, nil
	}

	s.logger.Warnf("pytest exit code: %d", out.ExitCode)
	s.logger.Warnf("pytest output:\n%s", stringutil.LastNLines(string(out.RawOut), pytestOutputTailLen))

	exists, checkErr := s.pathChecker.IsPathExists(cfg.JUnitFile)
	if checkErr != nil || !exists {
		return true, fmt.Errorf("pytest failed without producing %s: %w", cfg.JUnitFile, err)
	}
	return true, nil
}

type mappedResult struct {
	result junit.TestResult
	caseID int
}

type caseKey struct {
	section string
	title   string
}

type caseIndex struct {
	bySectionAndTitle map[caseKey]int
	byTitle           map[string]int
}

func loadCaseIndex(ctx context.Context, client testrail.Client, projectID, suiteID int) (caseIndex, error) {
	sections, err := client.GetSections(ctx, projectID, suiteID)
	if err != nil {
		return caseIndex{}, fmt.Errorf("failed to list sections: %w", err)
	}
	sectionNames := map[int]string{}
	for _, section := range sections {
		sectionNames[section.ID] = section.Name
	}

	cases, err := client.GetCases(ctx, projectID, suiteID, 0)
	if err != nil {
		return caseIndex{}, fmt.Errorf("failed to list cases: %w", err)
	}

	index := caseIndex{
		bySectionAndTitle: map[caseKey]int{},
		byTitle:           map[string]int{},
	}
	for _, c := range cases {
		key := caseKey{section: sectionNames[c.SectionID], title: c.Title}
		if _, ok := index.bySectionAndTitle[key]; !ok {
			index.bySectionAndTitle[key] = c.ID
		}
		if _, ok := index.byTitle[c.Title]; !ok {
			index.byTitle[c.Title] = c.ID
		}
	}
	return index, nil
}

func (index caseIndex) lookup(result junit.TestResult) (int, bool) {
	title := result.CaseTitle()
	if id, ok := index.bySectionAndTitle[caseKey{section: result.SectionName(), title: title}]; ok {
		return id, true
	}
	id, ok := index.byTitle[title]
	return id, ok
}

func (s TestRailExporter) mapResults(results []junit.TestResult, index caseIndex) ([]mappedResult, []int, int) {
	var (
		mapped   []mappedResult
		caseIDs  = []int{}
		seen     = map[int]bool{}
		unmapped int
	)
	for _, result := range results {
		caseID, ok := index.lookup(result)
		if !ok {
			unmapped++
			s.logger.Warnf("No TestRail case found for %s::%s", result.ClassName, result.Name)
			continue
		}

		mapped = append(mapped, mappedResult{result: result, caseID: caseID})
		if !seen[caseID] {
			seen[caseID] = true
			caseIDs = append(caseIDs, caseID)
		}
	}
	return mapped, caseIDs, unmapped
}

// Export ...
func (s TestRailExporter) Export(cfg ExportConfig, result ExportResult) {
	if result.RunID > 0 {
		s.outputExporter.ExportRunSummary(output.RunSummary{
			RunID:     result.RunID,
			RunURL:    result.RunURL,
			Submitted: result.Submitted,
			Unmapped:  result.Unmapped,
			Outcomes:  result.Outcomes,
		})
	}
	if result.ReportParsed {
		s.outputExporter.ExportJUnitReport(cfg.DeployDir, cfg.JUnitFile, reportTestName)
	}
}
