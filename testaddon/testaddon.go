package testaddon

import (
	"fmt"
	"path/filepath"
)

// Exporter ...
type Exporter interface {
	CopyAndSaveMetadata(info AddonCopy) error
}

type exporter struct {
	testAddon TestAddon
}

// NewExporter ...
func NewExporter(testAddon TestAddon) Exporter {
	return &exporter{
		testAddon: testAddon,
	}
}

// AddonCopy ...
type AddonCopy struct {
	SourceReportPath string
	TargetAddonPath  string
	TargetTestName   string
}

// CopyAndSaveMetadata copies the report into <TargetAddonPath>/<TargetTestName>/ next to a test-info.json.
func (e exporter) CopyAndSaveMetadata(info AddonCopy) error {
	info.TargetTestName = e.testAddon.ReplaceUnsupportedFilenameCharacters(info.TargetTestName)
	addonPerStepOutputDir := filepath.Join(info.TargetAddonPath, info.TargetTestName)

	if err := e.testAddon.CopyReport(info.SourceReportPath, addonPerStepOutputDir); err != nil {
		return fmt.Errorf("failed to copy test report: %w", err)
	}
	if err := e.testAddon.SaveMetadata(addonPerStepOutputDir, info.TargetTestName); err != nil {
		return fmt.Errorf("failed to save test metadata: %w", err)
	}
	return nil
}
