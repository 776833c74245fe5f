package step

import (
	"fmt"
	"math"

	"github.com/bitrise-steplib/steps-testrail/junit"
	"github.com/bitrise-steplib/steps-testrail/testrail"
)

// StatusMapping maps test outcomes to TestRail status ids.
type StatusMapping struct {
	Passed  int
	Failed  int
	Error   int
	Skipped int
}

// DefaultStatusMapping uses TestRail's built-in statuses. Skipped tests are reported as Blocked.
var DefaultStatusMapping = StatusMapping{
	Passed:  testrail.StatusPassed,
	Failed:  testrail.StatusFailed,
	Error:   testrail.StatusFailed,
	Skipped: testrail.StatusBlocked,
}

// StatusID ...
func (m StatusMapping) StatusID(outcome junit.Outcome) int {
	switch outcome {
	case junit.OutcomeSkipped:
		return m.Skipped
	case junit.OutcomeFailed:
		return m.Failed
	case junit.OutcomeError:
		return m.Error
	default:
		return m.Passed
	}
}

func (m StatusMapping) withDefaults() StatusMapping {
	if m.Passed == 0 {
		m.Passed = DefaultStatusMapping.Passed
	}
	if m.Failed == 0 {
		m.Failed = DefaultStatusMapping.Failed
	}
	if m.Error == 0 {
		m.Error = DefaultStatusMapping.Error
	}
	if m.Skipped == 0 {
		m.Skipped = DefaultStatusMapping.Skipped
	}
	return m
}

func newResult(result junit.TestResult, statuses StatusMapping) testrail.NewResult {
	return testrail.NewResult{
		StatusID: statuses.StatusID(result.Outcome),
		Comment:  resultComment(result),
		Elapsed:  elapsed(result.Time),
	}
}

func resultComment(result junit.TestResult) string {
	switch result.Outcome {
	case junit.OutcomeFailed, junit.OutcomeError:
		comment := fmt.Sprintf("Test failed in %.2fs", result.Time)
		if result.FailureMessage != "" {
			comment += "\n\nFailure: " + result.FailureMessage
		}
		if result.ErrorMessage != "" {
			comment += "\n\nError: " + result.ErrorMessage
		}
		return comment
	case junit.OutcomeSkipped:
		comment := fmt.Sprintf("Test skipped in %.2fs", result.Time)
		if result.SkippedMessage != "" {
			comment += "\n\nReason: " + result.SkippedMessage
		}
		return comment
	default:
		return fmt.Sprintf("Test executed in %.2fs", result.Time)
	}
}

// elapsed formats a duration in TestRail's timespan format, whole seconds with a minimum of 1s.
func elapsed(seconds float64) string {
	if seconds < 1 {
		return "1s"
	}
	return fmt.Sprintf("%ds", int(math.Floor(seconds)))
}
