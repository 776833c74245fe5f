package fileremover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GivenExistingFile_WhenRemoving_ThenDeletesIt(t *testing.T) {
	// Given
	pth := filepath.Join(t.TempDir(), "test-results.xml")
	require.NoError(t, os.WriteFile(pth, []byte("<testsuites/>"), 0o600))
	remover := NewFileRemover(pathutil.NewPathChecker())

	// When
	removed, err := remover.RemoveIfExists(pth)

	// Then
	require.NoError(t, err)
	assert.True(t, removed)
	_, statErr := os.Stat(pth)
	assert.True(t, os.IsNotExist(statErr))
}

func Test_GivenMissingFile_WhenRemoving_ThenDoesNothing(t *testing.T) {
	// Given
	pth := filepath.Join(t.TempDir(), "test-results.xml")
	remover := NewFileRemover(pathutil.NewPathChecker())

	// When
	removed, err := remover.RemoveIfExists(pth)

	// Then
	require.NoError(t, err)
	assert.False(t, removed)
}
