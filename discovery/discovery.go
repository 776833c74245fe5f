package discovery

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

const testFilePattern = "test_*.py"

// Case is a test function found in a test class.
type Case struct {
	Title        string
	OriginalName string
	ClassName    string
	SectionName  string
	FilePath     string
}

// Identifier returns the suite local identifier of the case (Class::function).
func (c Case) Identifier() string {
	return c.ClassName + "::" + c.OriginalName
}

// Section is a test class with its test functions.
type Section struct {
	Name         string
	OriginalName string
	FilePath     string
	Cases        []Case
}

// Description is the TestRail description of a newly created section.
func (s Section) Description() string {
	return fmt.Sprintf("Test section for %s class", s.OriginalName)
}

// Discoverer ...
type Discoverer interface {
	Discover(testDir string) ([]Section, error)
}

type discoverer struct {
	logger      log.Logger
	pathChecker pathutil.PathChecker
}

// NewDiscoverer ...
func NewDiscoverer(logger log.Logger, pathChecker pathutil.PathChecker) Discoverer {
	return &discoverer{
		logger:      logger,
		pathChecker: pathChecker,
	}
}

// Discover parses every test file under testDir. Sections of the same name are merged in first-seen
// order and duplicate case titles within a section are dropped.
func (d discoverer) Discover(testDir string) ([]Section, error) {
	exists, err := d.pathChecker.IsDirExists(testDir)
	if err != nil {
		return nil, fmt.Errorf("failed to check test directory: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("test directory does not exist: %s", testDir)
	}

	files, err := FindTestFiles(testDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", testFilePattern, testDir)
	}

	d.logger.Printf("Found %d test file(s)", len(files))

	var (
		sections []Section
		byName   = map[string]int{}
	)
	for _, file := range files {
		fileSections, err := ParseFile(file)
		if err != nil {
			d.logger.Warnf("Skipping %s: %s", file, err)
			continue
		}

		for _, section := range fileSections {
			d.logger.Debugf("%s: %s (%d tests)", file, section.OriginalName, len(section.Cases))

			idx, ok := byName[section.Name]
			if !ok {
				byName[section.Name] = len(sections)
				sections = append(sections, Section{
					Name:         section.Name,
					OriginalName: section.OriginalName,
					FilePath:     section.FilePath,
				})
				idx = len(sections) - 1
			}

			sections[idx].Cases = d.appendUnique(sections[idx], section.Cases)
		}
	}

	return sections, nil
}

func (d discoverer) appendUnique(section Section, cases []Case) []Case {
	titles := map[string]bool{}
	for _, c := range section.Cases {
		titles[c.Title] = true
	}

	merged := section.Cases
	for _, c := range cases {
		if titles[c.Title] {
			d.logger.Warnf("Duplicate test title '%s' in section '%s' (%s), keeping the first definition", c.Title, section.Name, c.Identifier())
			continue
		}
		titles[c.Title] = true
		merged = append(merged, c)
	}
	return merged
}

// FindTestFiles recursively lists the pytest files under dir in lexical order.
func FindTestFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(pth string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		match, err := filepath.Match(testFilePattern, entry.Name())
		if err != nil {
			return err
		}
		if match {
			files = append(files, pth)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list test files in %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}
