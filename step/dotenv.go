package step

import (
	"fmt"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/joho/godotenv"
)

// DotEnvFile is read from the working directory before the inputs are parsed.
const DotEnvFile = ".env"

// LoadDotEnv exports the variables of an env file into the process environment.
// Variables that are already set are kept. A missing file is not an error.
func LoadDotEnv(logger log.Logger, pathChecker pathutil.PathChecker, pth string) error {
	exists, err := pathChecker.IsPathExists(pth)
	if err != nil {
		return fmt.Errorf("failed to check env file (%s): %w", pth, err)
	}
	if !exists {
		logger.Debugf("No env file found at %s", pth)
		return nil
	}

	if err := godotenv.Load(pth); err != nil {
		return fmt.Errorf("failed to load env file (%s): %w", pth, err)
	}
	logger.Printf("Loaded environment from %s", pth)
	return nil
}
