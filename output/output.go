package output

import (
	"path/filepath"
	"strconv"

	"github.com/bitrise-io/bitrise/configs"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-testrail/junit"
	"github.com/bitrise-steplib/steps-testrail/testaddon"
)

// Step output keys.
const (
	SyncCreatedSectionsKey  = "TESTRAIL_SYNC_CREATED_SECTIONS"
	SyncCreatedCasesKey     = "TESTRAIL_SYNC_CREATED_CASES"
	RunIDKey                = "TESTRAIL_RUN_ID"
	RunURLKey               = "TESTRAIL_RUN_URL"
	SubmittedResultCountKey = "TESTRAIL_SUBMITTED_RESULT_COUNT"
	UnmappedResultCountKey  = "TESTRAIL_UNMAPPED_RESULT_COUNT"
	JUnitReportPathKey      = "TESTRAIL_JUNIT_REPORT_PATH"
)

// SyncSummary ...
type SyncSummary struct {
	SectionsCreated  int
	SectionsExisting int
	CasesCreated     int
	CasesExisting    int
}

// RunSummary ...
type RunSummary struct {
	RunID     int
	RunURL    string
	Submitted int
	Unmapped  int
	Outcomes  junit.Summary
}

// OutputExporter exposes files for subsequent steps, implemented by go-steputils' export.Exporter.
type OutputExporter interface {
	ExportOutputFile(key, sourcePath, destinationPath string) error
}

// Exporter ...
type Exporter interface {
	ExportSyncSummary(summary SyncSummary)
	ExportRunSummary(summary RunSummary)
	ExportJUnitReport(deployDir, reportPath, testName string)
}

type exporter struct {
	envRepository     env.Repository
	logger            log.Logger
	outputExporter    OutputExporter
	testAddonExporter testaddon.Exporter
}

// NewExporter ...
func NewExporter(envRepository env.Repository, logger log.Logger, outputExporter OutputExporter, testAddonExporter testaddon.Exporter) Exporter {
	return &exporter{
		envRepository:     envRepository,
		logger:            logger,
		outputExporter:    outputExporter,
		testAddonExporter: testAddonExporter,
	}
}

func (e exporter) ExportSyncSummary(summary SyncSummary) {
	e.set(SyncCreatedSectionsKey, strconv.Itoa(summary.SectionsCreated))
	e.set(SyncCreatedCasesKey, strconv.Itoa(summary.CasesCreated))

	e.logger.Println()
	e.logger.Infof("Sync summary")
	e.logger.Printf("%s", syncTable(summary))
}

func (e exporter) ExportRunSummary(summary RunSummary) {
	e.set(RunIDKey, strconv.Itoa(summary.RunID))
	e.set(RunURLKey, summary.RunURL)
	e.set(SubmittedResultCountKey, strconv.Itoa(summary.Submitted))
	e.set(UnmappedResultCountKey, strconv.Itoa(summary.Unmapped))

	e.logger.Println()
	e.logger.Infof("Export summary")
	e.logger.Printf("%s", runTable(summary))
}

func (e exporter) ExportJUnitReport(deployDir, reportPath, testName string) {
	if deployDir != "" {
		deployPth := filepath.Join(deployDir, filepath.Base(reportPath))
		if err := e.outputExporter.ExportOutputFile(JUnitReportPathKey, reportPath, deployPth); err != nil {
			e.logger.Warnf("Failed to export: %s: %s", JUnitReportPathKey, err)
		}
	}

	if addonResultPath := e.envRepository.Get(configs.BitrisePerStepTestResultDirEnvKey); len(addonResultPath) > 0 {
		e.logger.Println()
		e.logger.Infof("Exporting test results")

		if err := e.testAddonExporter.CopyAndSaveMetadata(testaddon.AddonCopy{
			SourceReportPath: reportPath,
			TargetAddonPath:  addonResultPath,
			TargetTestName:   testName,
		}); err != nil {
			e.logger.Warnf("Failed to export test results: %s", err)
		}
	}
}

func (e exporter) set(key, value string) {
	if err := e.envRepository.Set(key, value); err != nil {
		e.logger.Warnf("Failed to export: %s: %s", key, err)
	}
}
