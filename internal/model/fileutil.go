package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// StringSet is an unordered set of identifiers.
type StringSet map[string]bool

// NewStringSet builds a set from values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = true
	}
	return s
}

// Has reports whether v is in the set. A nil set contains nothing.
func (s StringSet) Has(v string) bool {
	return s[v]
}

// Intersects reports whether any of values is in the set.
func (s StringSet) Intersects(values []string) bool {
	for _, v := range values {
		if s[v] {
			return true
		}
	}
	return false
}

// ReadCommentedText reads a pound-commented text file into a set of lines.
// Blank lines and lines starting with '#' are skipped; the rest are trimmed.
func ReadCommentedText(filePath string) (StringSet, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	set, err := ParseCommentedText(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}
	return set, nil
}

// ParseCommentedText is ReadCommentedText over an already open reader.
func ParseCommentedText(r io.Reader) (StringSet, error) {
	lines, err := scanLines(r)
	if err != nil {
		return nil, err
	}
	set := StringSet{}
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		set[s] = true
	}
	return set, nil
}

// ReadLines returns every line of a file, without line terminators.
func ReadLines(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}
	return lines, nil
}

func scanLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// IsRegularFile reports whether path names an existing regular file.
func IsRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
