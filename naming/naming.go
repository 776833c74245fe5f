package naming

import (
	"regexp"
	"strings"
)

const (
	classPrefix    = "Test"
	functionPrefix = "test_"
)

var camelCaseBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// RemoveTestPrefix removes the pytest collection prefix from a class (Test) or function (test_) name.
func RemoveTestPrefix(name string) string {
	if strings.HasPrefix(name, classPrefix) {
		return strings.TrimPrefix(name, classPrefix)
	}
	return strings.TrimPrefix(name, functionPrefix)
}

// SplitCamelCase separates camel case words with a space: ModelsEndpoint -> Models Endpoint.
func SplitCamelCase(name string) string {
	return camelCaseBoundary.ReplaceAllString(name, "$1 $2")
}

// SectionTitle returns the TestRail section name of a test class.
// Dotted JUnit class names (tests.test_models.TestModelsEndpoint) are accepted as well.
func SectionTitle(className string) string {
	if idx := strings.LastIndex(className, "."); idx >= 0 {
		className = className[idx+1:]
	}
	return SplitCamelCase(RemoveTestPrefix(className))
}

// CaseTitle returns the TestRail case title of a test function.
// The parametrization suffix of pytest ids (test_x[gpt-4]) is dropped.
func CaseTitle(testName string) string {
	if idx := strings.Index(testName, "["); idx > 0 && strings.HasSuffix(testName, "]") {
		testName = testName[:idx]
	}
	return RemoveTestPrefix(testName)
}
