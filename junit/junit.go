package junit

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bitrise-steplib/steps-testrail/naming"
)

// Outcome ...
type Outcome string

// Outcomes of a test case, in the order they take precedence when an entry carries more than one marker.
const (
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
	OutcomeError   Outcome = "error"
	OutcomePassed  Outcome = "passed"
)

// TestResult is a single testcase entry of a JUnit report.
type TestResult struct {
	ClassName      string
	Name           string
	Outcome        Outcome
	Time           float64
	FailureMessage string
	ErrorMessage   string
	SkippedMessage string
}

// CaseTitle is the TestRail case title the result belongs to.
func (r TestResult) CaseTitle() string {
	return naming.CaseTitle(r.Name)
}

// SectionName is the TestRail section name the result belongs to.
func (r TestResult) SectionName() string {
	return naming.SectionTitle(r.ClassName)
}

// Failed reports whether the test failed or errored.
func (r TestResult) Failed() bool {
	return r.Outcome == OutcomeFailed || r.Outcome == OutcomeError
}

type message struct {
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

func (m *message) content() string {
	if m == nil {
		return ""
	}
	if text := strings.TrimSpace(m.Text); text != "" {
		return text
	}
	return m.Message
}

type testCase struct {
	ClassName string   `xml:"classname,attr"`
	Name      string   `xml:"name,attr"`
	Time      string   `xml:"time,attr"`
	Failure   *message `xml:"failure"`
	Error     *message `xml:"error"`
	Skipped   *message `xml:"skipped"`
}

func (c testCase) result() TestResult {
	result := TestResult{
		ClassName:      c.ClassName,
		Name:           c.Name,
		Time:           parseTime(c.Time),
		FailureMessage: c.Failure.content(),
		ErrorMessage:   c.Error.content(),
		SkippedMessage: c.Skipped.content(),
	}

	switch {
	case c.Skipped != nil:
		result.Outcome = OutcomeSkipped
	case c.Failure != nil:
		result.Outcome = OutcomeFailed
	case c.Error != nil:
		result.Outcome = OutcomeError
	default:
		result.Outcome = OutcomePassed
	}

	return result
}

func parseTime(value string) float64 {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if value == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}

// ParseFile reads the JUnit report at pth.
func ParseFile(pth string) ([]TestResult, error) {
	f, err := os.Open(pth)
	if err != nil {
		return nil, fmt.Errorf("failed to open JUnit report: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	results, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JUnit report (%s): %w", pth, err)
	}
	return results, nil
}

// Parse returns every testcase element of the report in document order,
// regardless of whether the root is <testsuites> or <testsuite>.
func Parse(r io.Reader) ([]TestResult, error) {
	decoder := xml.NewDecoder(r)

	var (
		results []TestResult
		hasRoot bool
	)
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		hasRoot = true

		if start.Name.Local != "testcase" {
			continue
		}

		var element testCase
		if err := decoder.DecodeElement(&element, &start); err != nil {
			return nil, err
		}
		results = append(results, element.result())
	}

	if !hasRoot {
		return nil, errors.New("no root element")
	}
	return results, nil
}

// Summary counts results per outcome.
type Summary map[Outcome]int

// Summarize ...
func Summarize(results []TestResult) Summary {
	summary := Summary{}
	for _, result := range results {
		summary[result.Outcome]++
	}
	return summary
}
