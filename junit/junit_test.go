package junit

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile(t *testing.T) {
	results, err := ParseFile(filepath.Join("testdata", "pytest-report.xml"))
	require.NoError(t, err)
	require.Len(t, results, 5)

	passed := results[0]
	assert.Equal(t, OutcomePassed, passed.Outcome)
	assert.Equal(t, 0.412, passed.Time)
	assert.Equal(t, "Models Endpoint", passed.SectionName())
	assert.Equal(t, "list_models_success", passed.CaseTitle())
	assert.False(t, passed.Failed())

	failed := results[1]
	assert.Equal(t, OutcomeFailed, failed.Outcome)
	assert.True(t, failed.Failed())
	assert.Contains(t, failed.FailureMessage, "AssertionError: assert 500 == 401")
	assert.Contains(t, failed.FailureMessage, "> ")

	skipped := results[2]
	assert.Equal(t, OutcomeSkipped, skipped.Outcome)
	assert.Equal(t, "tests/test_files.py:12: upload disabled", skipped.SkippedMessage)

	errored := results[3]
	assert.Equal(t, OutcomeError, errored.Outcome)
	assert.Equal(t, `failed on setup with "fixture 'api_key' not found"`, errored.ErrorMessage)

	parametrized := results[4]
	assert.Equal(t, "chat_completion_different_models", parametrized.CaseTitle())
	assert.Equal(t, "Chat Completions Endpoint", parametrized.SectionName())
	assert.Equal(t, 1144.0, parametrized.Time)

	assert.Equal(t, Summary{OutcomePassed: 2, OutcomeFailed: 1, OutcomeSkipped: 1, OutcomeError: 1}, Summarize(results))
}

func TestParse_OutcomePrecedence(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		outcome Outcome
	}{
		{name: "skipped wins over failure", body: `<skipped/><failure>boom</failure>`, outcome: OutcomeSkipped},
		{name: "failure wins over error", body: `<error>setup</error><failure>boom</failure>`, outcome: OutcomeFailed},
		{name: "error", body: `<error>setup</error>`, outcome: OutcomeError},
		{name: "system out only", body: `<system-out>hello</system-out>`, outcome: OutcomePassed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := `<testsuite><testcase classname="TestA" name="test_a" time="0.1">` + tt.body + `</testcase></testsuite>`

			results, err := Parse(strings.NewReader(report))
			require.NoError(t, err)
			require.Len(t, results, 1)
			require.Equal(t, tt.outcome, results[0].Outcome)
		})
	}
}

func TestParse_FailedWithBothMessages(t *testing.T) {
	report := `<testsuite><testcase classname="TestA" name="test_a"><failure message="assert 1 == 2"/><error>teardown failed</error></testcase></testsuite>`

	results, err := Parse(strings.NewReader(report))
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.Equal(t, "assert 1 == 2", results[0].FailureMessage)
	assert.Equal(t, "teardown failed", results[0].ErrorMessage)
	assert.Equal(t, 0.0, results[0].Time)
}

func TestParse_EmptySuite(t *testing.T) {
	results, err := Parse(strings.NewReader(`<testsuites><testsuite name="pytest" tests="0"/></testsuites>`))
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestParse_InvalidReport(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	require.Error(t, err)

	_, err = Parse(strings.NewReader(`<testsuite><testcase name="test_a">`))
	require.Error(t, err)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join("testdata", "missing.xml"))
	require.Error(t, err)
}
