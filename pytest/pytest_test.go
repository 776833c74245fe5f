package pytest

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-testrail/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	args, err := Args("tests", "test-results.xml", `-m "not slow" -k 'models and success' -v`)
	require.NoError(t, err)
	require.Equal(t, []string{
		"tests", "--junitxml=test-results.xml", "-o", "junit_family=xunit2",
		"-m", "not slow", "-k", "models and success", "-v",
	}, args)

	args, err = Args("tests", "out.xml", "")
	require.NoError(t, err)
	require.Equal(t, []string{"tests", "--junitxml=out.xml", "-o", "junit_family=xunit2"}, args)

	_, err = Args("tests", "out.xml", `-k "unterminated`)
	require.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		out     string
		want    string
		wantErr bool
	}{
		{out: "pytest 7.4.0", want: "7.4.0"},
		{out: "This is pytest version 5.4.3, imported from /usr/lib/python3/dist-packages/pytest.py", want: "5.4.3"},
		{out: "/usr/bin/python3: No module named pytest", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.out, func(t *testing.T) {
			got, err := parseVersion(tt.out)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.String())
		})
	}
}

func Test_GivenInstalledPytest_WhenInstall_ThenReturnsVersion(t *testing.T) {
	// Given
	factory := mocks.NewFactory(t)
	versionCmd := mocks.NewCommand(t)
	versionCmd.On("RunAndReturnTrimmedCombinedOutput").Return("pytest 8.2.1", nil)
	factory.On("Create", "python3", []string{"-m", "pytest", "--version"}, (*command.Opts)(nil)).Return(versionCmd)

	installer := NewDependencyManager(log.NewLogger(), factory, "python3")

	// When
	installed, err := installer.Install()

	// Then
	require.NoError(t, err)
	assert.Equal(t, "8.2.1", installed.String())
	factory.AssertNotCalled(t, "Create", "python3", []string{"-m", "pip", "install", "pytest"}, mock.Anything)
}

func Test_GivenMissingPytestAndFailingFirstInstall_WhenInstall_ThenRetriesAndInstallsIt(t *testing.T) {
	// Given
	factory := mocks.NewFactory(t)

	versionCmd := mocks.NewCommand(t)
	versionCmd.On("PrintableCommandArgs").Return("python3 -m pytest --version").Once()
	versionCmd.On("RunAndReturnTrimmedCombinedOutput").Return("No module named pytest", errors.New("exit status 1")).Once()
	versionCmd.On("RunAndReturnTrimmedCombinedOutput").Return("pytest 7.0.1", nil).Once()
	factory.On("Create", "python3", []string{"-m", "pytest", "--version"}, (*command.Opts)(nil)).Return(versionCmd)

	failingInstallCmd := mocks.NewCommand(t)
	failingInstallCmd.On("PrintableCommandArgs").Return("python3 -m pip install pytest")
	failingInstallCmd.On("RunAndReturnTrimmedCombinedOutput").Return("ERROR: Could not find a version that satisfies the requirement pytest", errors.New("exit status 1"))

	installCmd := mocks.NewCommand(t)
	installCmd.On("PrintableCommandArgs").Return("python3 -m pip install pytest")
	installCmd.On("RunAndReturnTrimmedCombinedOutput").Return("Successfully installed pytest-7.0.1", nil)

	factory.On("Create", "python3", []string{"-m", "pip", "install", "pytest"}, (*command.Opts)(nil)).Return(failingInstallCmd).Once()
	factory.On("Create", "python3", []string{"-m", "pip", "install", "pytest"}, (*command.Opts)(nil)).Return(installCmd).Once()

	installer := &dependencyManager{logger: log.NewLogger(), commandFactory: factory, python: "python3", installWait: time.Millisecond}

	// When
	installed, err := installer.Install()

	// Then
	require.NoError(t, err)
	assert.Equal(t, "7.0.1", installed.String())
	factory.AssertNumberOfCalls(t, "Create", 4)
	failingInstallCmd.AssertNumberOfCalls(t, "RunAndReturnTrimmedCombinedOutput", 1)
	installCmd.AssertNumberOfCalls(t, "RunAndReturnTrimmedCombinedOutput", 1)
}

func Test_GivenOutdatedPytest_WhenInstall_ThenFails(t *testing.T) {
	// Given
	factory := mocks.NewFactory(t)
	versionCmd := mocks.NewCommand(t)
	versionCmd.On("RunAndReturnTrimmedCombinedOutput").Return("This is pytest version 5.4.3, imported from pytest.py", nil)
	factory.On("Create", "python3", []string{"-m", "pytest", "--version"}, (*command.Opts)(nil)).Return(versionCmd)

	installer := NewDependencyManager(log.NewLogger(), factory, "python3")

	// When
	installed, err := installer.Install()

	// Then
	require.EqualError(t, err, "pytest 5.4.3 is not supported, minimum version: 6.0.0")
	assert.Nil(t, installed)
}

func Test_GivenFailingTests_WhenRun_ThenReturnsExitCodeAndOutput(t *testing.T) {
	// Given
	factory := mocks.NewFactory(t)
	pytestCmd := mocks.NewCommand(t)
	pytestCmd.On("PrintableCommandArgs").Return("python3 -m pytest tests")
	pytestCmd.On("RunAndReturnExitCode").Return(1, errors.New("exit status 1"))

	var opts *command.Opts
	factory.On("Create", "python3", []string{"-m", "pytest", "tests"}, mock.Anything).
		Run(func(args mock.Arguments) {
			opts = args.Get(2).(*command.Opts)
			_, _ = io.WriteString(opts.Stdout, "1 failed, 3 passed")
		}).
		Return(pytestCmd)

	var stdout bytes.Buffer
	runner := &commandRunner{logger: log.NewLogger(), commandFactory: factory, python: "python3", stdout: &stdout}

	// When
	out, err := runner.Run("/work", []string{"tests"})

	// Then
	require.Error(t, err)
	assert.True(t, out.TestsFailed())
	assert.Equal(t, "1 failed, 3 passed", string(out.RawOut))
	assert.Equal(t, "1 failed, 3 passed", stdout.String())
	assert.Equal(t, "/work", opts.Dir)
	assert.Equal(t, []string{"PYTHONUNBUFFERED=1"}, opts.Env)
}

func Test_GivenMissingInterpreter_WhenRun_ThenReportsInternalError(t *testing.T) {
	// Given
	factory := mocks.NewFactory(t)
	pytestCmd := mocks.NewCommand(t)
	pytestCmd.On("PrintableCommandArgs").Return("python3 -m pytest tests")
	pytestCmd.On("RunAndReturnExitCode").Return(-1, errors.New(`exec: "python3": executable file not found in $PATH`))
	factory.On("Create", "python3", []string{"-m", "pytest", "tests"}, mock.Anything).Return(pytestCmd)

	runner := &commandRunner{logger: log.NewLogger(), commandFactory: factory, python: "python3", stdout: io.Discard}

	// When
	out, err := runner.Run("", []string{"tests"})

	// Then
	require.Error(t, err)
	assert.Equal(t, ExitCodeInternalError, out.ExitCode)
	assert.False(t, out.TestsFailed())
}
