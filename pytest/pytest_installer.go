package pytest

import (
	"fmt"
	"regexp"
	"time"

	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-version"
)

const (
	installAttempts = 3
	installWait     = 5 * time.Second
)

var versionPattern = regexp.MustCompile(`pytest(?: version)? (\d+(?:\.\d+)+)`)

type dependencyManager struct {
	logger         log.Logger
	commandFactory command.Factory
	python         string
	installWait    time.Duration
}

// NewDependencyManager ...
func NewDependencyManager(logger log.Logger, commandFactory command.Factory, python string) DependencyInstaller {
	return &dependencyManager{
		logger:         logger,
		commandFactory: commandFactory,
		python:         python,
		installWait:    installWait,
	}
}

func (m *dependencyManager) Install() (*version.Version, error) {
	m.logger.Println()
	m.logger.Infof("Checking if pytest is installed")

	pytestVersion, err := m.depVersion()
	if err != nil {
		m.logger.Warnf("pytest is not installed: %s", err)
		m.logger.Printf("Installing pytest")

		if err := retry.Times(installAttempts - 1).Wait(m.installWait).Try(func(attempt uint) error {
			cmd := m.commandFactory.Create(m.python, []string{"-m", "pip", "install", "pytest"}, nil)
			m.logger.Donef("$ %s", cmd.PrintableCommandArgs())

			out, err := cmd.RunAndReturnTrimmedCombinedOutput()
			if err != nil {
				m.logger.Warnf("attempt %d to install pytest failed: %s", attempt, err)
				return fmt.Errorf("%w, output: %s", err, out)
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to install pytest: %w", err)
		}

		if pytestVersion, err = m.depVersion(); err != nil {
			return nil, fmt.Errorf("failed to get pytest version: %w", err)
		}
	}

	if pytestVersion.LessThan(MinimumVersion) {
		return nil, fmt.Errorf("pytest %s is not supported, minimum version: %s", pytestVersion, MinimumVersion)
	}

	m.logger.Printf("- pytest version: %s", pytestVersion)
	return pytestVersion, nil
}

func (m *dependencyManager) depVersion() (*version.Version, error) {
	cmd := m.commandFactory.Create(m.python, []string{"-m", "pytest", "--version"}, nil)

	out, err := cmd.RunAndReturnTrimmedCombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", cmd.PrintableCommandArgs(), err)
	}

	return parseVersion(out)
}

func parseVersion(out string) (*version.Version, error) {
	match := versionPattern.FindStringSubmatch(out)
	if match == nil {
		return nil, fmt.Errorf("unexpected pytest version output: %s", out)
	}
	return version.NewVersion(match[1])
}
