package pytest

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/kballard/go-shellquote"
)

// Exit codes of a pytest session.
const (
	ExitCodeOK               = 0
	ExitCodeTestsFailed      = 1
	ExitCodeInterrupted      = 2
	ExitCodeInternalError    = 3
	ExitCodeUsageError       = 4
	ExitCodeNoTestsCollected = 5
)

// MinimumVersion is the oldest pytest writing xunit2 reports with a testsuites root.
var MinimumVersion = version.Must(version.NewVersion("6.0"))

// Output ...
type Output struct {
	RawOut   []byte
	ExitCode int
}

// TestsFailed reports whether pytest finished the session with failing tests.
func (o Output) TestsFailed() bool {
	return o.ExitCode == ExitCodeTestsFailed
}

// DependencyInstaller ...
type DependencyInstaller interface {
	Install() (*version.Version, error)
}

// Runner ...
type Runner interface {
	Run(workDir string, args []string) (Output, error)
}

// Args returns the pytest arguments producing a JUnit report at junitFile.
// Extra options follow shell quoting rules.
func Args(testDir, junitFile, options string) ([]string, error) {
	args := []string{testDir, "--junitxml=" + junitFile, "-o", "junit_family=xunit2"}
	if options == "" {
		return args, nil
	}

	extra, err := shellquote.Split(options)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pytest options (%s): %w", options, err)
	}
	return append(args, extra...), nil
}
