package step

import (
	"context"
	"fmt"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/steps-testrail/discovery"
	"github.com/bitrise-steplib/steps-testrail/output"
	"github.com/bitrise-steplib/steps-testrail/testrail"
)

// SyncInput ...
type SyncInput struct {
	URL       string          `env:"TESTRAIL_URL,required"`
	Username  string          `env:"TESTRAIL_USERNAME,required"`
	Password  stepconf.Secret `env:"TESTRAIL_PASSWORD,required"`
	ProjectID int             `env:"TESTRAIL_PROJECT_ID,required"`
	SuiteID   int             `env:"TESTRAIL_SUITE_ID"`
	TestDir   string          `env:"TESTRAIL_TEST_DIR"`

	RequestsPerMinute int  `env:"TESTRAIL_REQUESTS_PER_MINUTE"`
	MaxRetries        *int `env:"TESTRAIL_MAX_RETRIES"`
	Verbose           bool `env:"TESTRAIL_VERBOSE"`
}

// SyncConfig ...
type SyncConfig struct {
	Connection
	ProjectID int
	SuiteID   int
	TestDir   string
}

// SyncResult ...
type SyncResult struct {
	SectionsCreated  int
	SectionsExisting int
	CasesCreated     int
	CasesExisting    int
}

// TestRailSyncer creates the sections and cases of the local test classes that are missing from TestRail.
type TestRailSyncer struct {
	inputParser    stepconf.InputParser
	logger         log.Logger
	pathChecker    pathutil.PathChecker
	discoverer     discovery.Discoverer
	clientFactory  ClientFactory
	outputExporter output.Exporter
}

// NewTestRailSyncer ...
func NewTestRailSyncer(inputParser stepconf.InputParser, logger log.Logger, pathChecker pathutil.PathChecker, discoverer discovery.Discoverer, clientFactory ClientFactory, outputExporter output.Exporter) TestRailSyncer {
	return TestRailSyncer{
		inputParser:    inputParser,
		logger:         logger,
		pathChecker:    pathChecker,
		discoverer:     discoverer,
		clientFactory:  clientFactory,
		outputExporter: outputExporter,
	}
}

// ProcessConfig ...
func (s TestRailSyncer) ProcessConfig() (SyncConfig, error) {
	var input SyncInput
	if err := s.inputParser.Parse(&input); err != nil {
		return SyncConfig{}, err
	}

	stepconf.Print(input)
	s.logger.Println()

	s.logger.EnableDebugLog(input.Verbose)

	connection, err := newConnection(input.URL, input.Username, input.Password, input.RequestsPerMinute, input.MaxRetries)
	if err != nil {
		return SyncConfig{}, err
	}
	if err := validateProject(input.ProjectID, input.SuiteID); err != nil {
		return SyncConfig{}, err
	}
	testDir, err := validateTestDir(s.pathChecker, input.TestDir)
	if err != nil {
		return SyncConfig{}, err
	}

	return SyncConfig{
		Connection: connection,
		ProjectID:  input.ProjectID,
		SuiteID:    input.SuiteID,
		TestDir:    testDir,
	}, nil
}

// Run ...
func (s TestRailSyncer) Run(ctx context.Context, cfg SyncConfig) (SyncResult, error) {
	s.logger.Infof("Discovering tests in %s", cfg.TestDir)

	sections, err := s.discoverer.Discover(cfg.TestDir)
	if err != nil {
		return SyncResult{}, err
	}

	caseCount := 0
	for _, section := range sections {
		caseCount += len(section.Cases)
	}
	s.logger.Printf("Found %d test class(es) with %d test(s)", len(sections), caseCount)
	s.logger.Println()

	client, err := s.clientFactory(cfg.ClientConfig(), s.logger)
	if err != nil {
		return SyncResult{}, err
	}

	s.logger.Infof("Syncing with TestRail")

	project, err := verifyProject(ctx, s.logger, client, cfg.ProjectID)
	if err != nil {
		return SyncResult{}, err
	}
	suiteID, err := resolveSuite(ctx, s.logger, client, project, cfg.SuiteID)
	if err != nil {
		return SyncResult{}, err
	}

	remoteSections, err := client.GetSections(ctx, project.ID, suiteID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to list sections: %w", err)
	}
	sectionsByName := map[string]testrail.Section{}
	for _, section := range remoteSections {
		if _, ok := sectionsByName[section.Name]; !ok {
			sectionsByName[section.Name] = section
		}
	}

	var result SyncResult
	for i, section := range sections {
		if err := s.syncSection(ctx, client, project.ID, suiteID, section, sectionsByName, &result); err != nil {
			s.logger.Errorf("Sync aborted after %d of %d section(s): %d section(s) and %d case(s) created", i, len(sections), result.SectionsCreated, result.CasesCreated)
			return result, err
		}
	}

	return result, nil
}

func (s TestRailSyncer) syncSection(ctx context.Context, client testrail.Client, projectID, suiteID int, section discovery.Section, sectionsByName map[string]testrail.Section, result *SyncResult) error {
	s.logger.Println()

	remote, ok := sectionsByName[section.Name]
	if ok {
		result.SectionsExisting++
		s.logger.Printf("Section '%s' (%d)", remote.Name, remote.ID)
	} else {
		created, err := client.AddSection(ctx, projectID, testrail.NewSection{
			SuiteID:     suiteID,
			Name:        section.Name,
			Description: section.Description(),
		})
		if err != nil {
			return fmt.Errorf("failed to create section '%s': %w", section.Name, err)
		}

		remote = created
		sectionsByName[section.Name] = created
		result.SectionsCreated++
		s.logger.Donef("Created section '%s' (%d)", created.Name, created.ID)
	}

	remoteCases, err := client.GetCases(ctx, projectID, suiteID, remote.ID)
	if err != nil {
		return fmt.Errorf("failed to list cases of section '%s': %w", section.Name, err)
	}
	titles := map[string]bool{}
	for _, c := range remoteCases {
		titles[c.Title] = true
	}

	for _, c := range section.Cases {
		if titles[c.Title] {
			result.CasesExisting++
			s.logger.Debugf("- %s (exists)", c.Title)
			continue
		}

		created, err := client.AddCase(ctx, remote.ID, newCase(c))
		if err != nil {
			return fmt.Errorf("failed to create case '%s' in section '%s': %w", c.Title, section.Name, err)
		}

		titles[c.Title] = true
		result.CasesCreated++
		s.logger.Donef("- Created case '%s' (C%d)", created.Title, created.ID)
	}

	return nil
}

func newCase(c discovery.Case) testrail.NewCase {
	return testrail.NewCase{
		Title:                c.Title,
		TemplateID:           1,
		TypeID:               1,
		PriorityID:           2,
		Estimate:             "1m",
		CustomAutomationType: 0,
		CustomPreconds:       fmt.Sprintf("Automated test case from %s in %s", c.OriginalName, c.ClassName),
	}
}

// Export ...
func (s TestRailSyncer) Export(result SyncResult) {
	s.outputExporter.ExportSyncSummary(output.SyncSummary{
		SectionsCreated:  result.SectionsCreated,
		SectionsExisting: result.SectionsExisting,
		CasesCreated:     result.CasesCreated,
		CasesExisting:    result.CasesExisting,
	})
}
