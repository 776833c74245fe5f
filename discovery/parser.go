package discovery

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/bitrise-steplib/steps-testrail/naming"
)

const tabWidth = 8

var (
	classPattern    = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)`)
	functionPattern = regexp.MustCompile(`^def\s+([A-Za-z_]\w*)\s*\(`)
)

// ParseFile parses a pytest source file and returns its test classes as sections.
func ParseFile(pth string) ([]Section, error) {
	f, err := os.Open(pth)
	if err != nil {
		return nil, fmt.Errorf("failed to open test file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return Parse(f, pth)
}

// Parse reads Python source and returns every Test* class that directly defines at least one
// test_* function. Classes are reported in source order, nested classes included.
func Parse(r io.Reader, pth string) ([]Section, error) {
	type openClass struct {
		name       string
		indent     int
		bodyIndent int
		index      int
	}

	var (
		state   lineState
		stack   []*openClass
		classes []Section
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		startsStatement := state.atStatementBoundary()
		state.scan(line)

		if !startsStatement {
			continue
		}

		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}

		indent := indentation(line)
		for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
			stack = stack[:len(stack)-1]
		}

		directChildOf := (*openClass)(nil)
		if len(stack) > 0 {
			innermost := stack[len(stack)-1]
			if innermost.bodyIndent < 0 {
				innermost.bodyIndent = indent
			}
			if indent == innermost.bodyIndent {
				directChildOf = innermost
			}
		}

		if match := classPattern.FindStringSubmatch(stripped); match != nil {
			name := match[1]
			classes = append(classes, Section{
				Name:         naming.SectionTitle(name),
				OriginalName: name,
				FilePath:     pth,
			})
			stack = append(stack, &openClass{name: name, indent: indent, bodyIndent: -1, index: len(classes) - 1})
			continue
		}

		if directChildOf == nil || !strings.HasPrefix(directChildOf.name, "Test") {
			continue
		}

		match := functionPattern.FindStringSubmatch(stripped)
		if match == nil || !strings.HasPrefix(match[1], "test_") {
			continue
		}

		section := &classes[directChildOf.index]
		section.Cases = append(section.Cases, Case{
			Title:        naming.CaseTitle(match[1]),
			OriginalName: match[1],
			ClassName:    directChildOf.name,
			SectionName:  section.Name,
			FilePath:     pth,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pth, err)
	}

	var sections []Section
	for _, class := range classes {
		if strings.HasPrefix(class.OriginalName, "Test") && len(class.Cases) > 0 {
			sections = append(sections, class)
		}
	}
	return sections, nil
}

// lineState tracks the lexical context that spans physical lines:
// triple-quoted strings, open brackets and backslash continuations.
type lineState struct {
	quote     string
	depth     int
	continued bool
}

func (s lineState) atStatementBoundary() bool {
	return s.quote == "" && s.depth == 0 && !s.continued
}

func (s *lineState) scan(line string) {
	s.continued = false

	for i := 0; i < len(line); i++ {
		if s.quote != "" {
			if line[i] == '\\' {
				i++
				continue
			}
			if strings.HasPrefix(line[i:], s.quote) {
				i += len(s.quote) - 1
				s.quote = ""
			}
			continue
		}

		c := line[i]
		switch c {
		case '#':
			return
		case '"', '\'':
			triple := strings.Repeat(string(c), 3)
			if strings.HasPrefix(line[i:], triple) {
				s.quote = triple
				i += 2
				continue
			}
			i = skipShortString(line, i)
		case '(', '[', '{':
			s.depth++
		case ')', ']', '}':
			if s.depth > 0 {
				s.depth--
			}
		case '\\':
			if i == len(line)-1 {
				s.continued = true
			}
		}
	}
}

// skipShortString returns the index of the closing quote of the single-line string starting at start.
func skipShortString(line string, start int) int {
	quote := line[start]
	for i := start + 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return len(line)
}

func indentation(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += tabWidth - width%tabWidth
		default:
			return width
		}
	}
	return width
}
