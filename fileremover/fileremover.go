package fileremover

import (
	"os"

	"github.com/bitrise-io/go-utils/v2/pathutil"
)

// FileRemover ...
type FileRemover interface {
	RemoveIfExists(pth string) (bool, error)
}

type fileRemover struct {
	pathChecker pathutil.PathChecker
}

// NewFileRemover ...
func NewFileRemover(pathChecker pathutil.PathChecker) FileRemover {
	return fileRemover{pathChecker: pathChecker}
}

// RemoveIfExists deletes pth and reports whether there was anything to delete.
func (r fileRemover) RemoveIfExists(pth string) (bool, error) {
	exists, err := r.pathChecker.IsPathExists(pth)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	return true, os.Remove(pth)
}
