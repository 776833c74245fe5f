package discovery

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sectionNames(sections []Section) []string {
	var names []string
	for _, section := range sections {
		names = append(names, section.Name)
	}
	return names
}

func caseTitles(section Section) []string {
	var titles []string
	for _, c := range section.Cases {
		titles = append(titles, c.Title)
	}
	return titles
}

func TestParse_ClassesAndFunctions(t *testing.T) {
	sections, err := ParseFile(filepath.Join("testdata", "tests", "test_models.py"))
	require.NoError(t, err)

	require.Equal(t, []string{"Models Endpoint"}, sectionNames(sections))
	require.Equal(t, []string{
		"list_models_success",
		"list_models_unauthorized",
		"retrieve_specific_model_success",
	}, caseTitles(sections[0]))

	first := sections[0].Cases[0]
	assert.Equal(t, "TestModelsEndpoint::test_list_models_success", first.Identifier())
	assert.Equal(t, "Models Endpoint", first.SectionName)
	assert.Equal(t, "TestModelsEndpoint", sections[0].OriginalName)
	assert.Equal(t, "Test section for TestModelsEndpoint class", sections[0].Description())
}

func TestParse_IgnoresNonTestClassesAndStrings(t *testing.T) {
	sections, err := ParseFile(filepath.Join("testdata", "tests", "test_files.py"))
	require.NoError(t, err)

	require.Equal(t, []string{"Files Endpoint"}, sectionNames(sections))
	require.Equal(t, []string{"upload_file_success", "list_files"}, caseTitles(sections[0]))
}

func TestParse_NestedClasses(t *testing.T) {
	sections, err := ParseFile(filepath.Join("testdata", "tests", "nested", "test_chat_completions.py"))
	require.NoError(t, err)

	require.Equal(t, []string{"Chat Completions Endpoint", "Streaming"}, sectionNames(sections))
	require.Equal(t, []string{"chat_completion_success", "chat_completion_different_models"}, caseTitles(sections[0]))
	require.Equal(t, []string{"stream_chunks"}, caseTitles(sections[1]))
}

func TestParse_Source(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   map[string][]string
	}{
		{
			name:   "empty source",
			source: "",
			want:   map[string][]string{},
		},
		{
			name:   "tab indentation",
			source: "class TestTabs:\n\tdef test_one(self):\n\t\tpass\n\tdef test_two(self):\n\t\tpass\n",
			want:   map[string][]string{"Tabs": {"one", "two"}},
		},
		{
			name:   "backslash continuation",
			source: "class TestContinued:\n    value = 1 + \\\n        2\n    def test_after(self):\n        pass\n",
			want:   map[string][]string{"Continued": {"after"}},
		},
		{
			name:   "comment lines do not close the class",
			source: "class TestComments:\n    def test_a(self):\n        pass\n# top level comment\n    def test_b(self):\n        pass\n",
			want:   map[string][]string{"Comments": {"a", "b"}},
		},
		{
			name:   "top level test functions are not cases",
			source: "def test_module_level():\n    pass\n",
			want:   map[string][]string{},
		},
		{
			name:   "inheritance and single quoted docstring",
			source: "class TestBase(object):\n    '''class TestFake:'''\n    def test_inherited(self):\n        pass\n",
			want:   map[string][]string{"Base": {"inherited"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections, err := Parse(strings.NewReader(tt.source), "test_source.py")
			require.NoError(t, err)

			got := map[string][]string{}
			for _, section := range sections {
				got[section.Name] = caseTitles(section)
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFindTestFiles(t *testing.T) {
	files, err := FindTestFiles(filepath.Join("testdata", "tests"))
	require.NoError(t, err)

	require.Equal(t, []string{
		filepath.Join("testdata", "tests", "nested", "test_chat_completions.py"),
		filepath.Join("testdata", "tests", "nested", "test_models_extra.py"),
		filepath.Join("testdata", "tests", "test_files.py"),
		filepath.Join("testdata", "tests", "test_models.py"),
	}, files)
}

func Test_GivenTestDirectory_WhenDiscover_ThenSectionsAreMergedByName(t *testing.T) {
	// Given
	discoverer := NewDiscoverer(log.NewLogger(), pathutil.NewPathChecker())

	// When
	sections, err := discoverer.Discover(filepath.Join("testdata", "tests"))

	// Then
	require.NoError(t, err)
	require.Equal(t, []string{"Chat Completions Endpoint", "Streaming", "Models Endpoint", "Files Endpoint"}, sectionNames(sections))
	require.Equal(t, []string{
		"list_models_success",
		"list_models_pagination",
		"list_models_unauthorized",
		"retrieve_specific_model_success",
	}, caseTitles(sections[2]))
}

func Test_GivenMissingDirectory_WhenDiscover_ThenFails(t *testing.T) {
	// Given
	discoverer := NewDiscoverer(log.NewLogger(), pathutil.NewPathChecker())

	// When
	sections, err := discoverer.Discover(filepath.Join("testdata", "missing"))

	// Then
	require.Error(t, err)
	require.Nil(t, sections)
}

func Test_GivenDirectoryWithoutTestFiles_WhenDiscover_ThenFails(t *testing.T) {
	// Given
	testDir := t.TempDir()
	discoverer := NewDiscoverer(log.NewLogger(), pathutil.NewPathChecker())

	// When
	_, err := discoverer.Discover(testDir)

	// Then
	require.EqualError(t, err, "no test_*.py files found in "+testDir)
}
