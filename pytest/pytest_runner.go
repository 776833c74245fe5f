package pytest

import (
	"bytes"
	"io"
	"os"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
)

var pytestCommandEnvs = []string{"PYTHONUNBUFFERED=1"}

type commandRunner struct {
	logger         log.Logger
	commandFactory command.Factory
	python         string
	stdout         io.Writer
}

// NewCommandRunner ...
func NewCommandRunner(logger log.Logger, commandFactory command.Factory, python string) Runner {
	return &commandRunner{
		logger:         logger,
		commandFactory: commandFactory,
		python:         python,
		stdout:         os.Stdout,
	}
}

// Run executes `python -m pytest` and streams its output. A failing test session is reported
// through the exit code together with the command error.
func (r *commandRunner) Run(workDir string, args []string) (Output, error) {
	var (
		outBuffer bytes.Buffer
		outWriter = io.MultiWriter(&outBuffer, r.stdout)
	)

	cmd := r.commandFactory.Create(r.python, append([]string{"-m", "pytest"}, args...), &command.Opts{
		Stdout: outWriter,
		Stderr: outWriter,
		Env:    pytestCommandEnvs,
		Dir:    workDir,
	})

	r.logger.Println()
	r.logger.TInfof("$ %s", cmd.PrintableCommandArgs())

	exitCode, err := cmd.RunAndReturnExitCode()
	if err != nil && exitCode <= 0 {
		exitCode = ExitCodeInternalError
	}

	return Output{
		RawOut:   outBuffer.Bytes(),
		ExitCode: exitCode,
	}, err
}
