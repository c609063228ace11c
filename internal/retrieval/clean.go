package retrieval

import (
	"regexp"
	"strings"
)

var boilerplate = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^page\s+\d+(\s*(of|/)\s*\d+)?$`),
	regexp.MustCompile(`(?i)^(copyright\b|©|\(c\)\s*\d{4}).*$`),
	regexp.MustCompile(`(?i)^.*all rights reserved\.?$`),
	regexp.MustCompile(`(?i)^(strictly\s+)?(private\s+and\s+)?confidential(\s*[-–|:].*)?$`),
}

func isBoilerplate(line string) bool {
	for _, re := range boilerplate {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// lineSet remembers lines already emitted in a bundle.
type lineSet map[string]struct{}

func (s lineSet) seen(line string) bool {
	key := strings.ToLower(strings.Join(strings.Fields(line), " "))
	if _, ok := s[key]; ok {
		return true
	}
	s[key] = struct{}{}
	return false
}

// cleanText drops blank, boilerplate and already-seen lines.
func cleanText(text string, seen lineSet) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isBoilerplate(line) || seen.seen(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
