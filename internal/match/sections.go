package match

import (
	"regexp"
	"strings"
)

// headingSynonyms maps normalized heading variants to their canonical name,
// so "work experience" and "professional experience" both satisfy a request
// for "experience".
var headingSynonyms = map[string]string{
	"work experience":         "experience",
	"professional experience": "experience",
	"employment history":      "experience",
	"work history":            "experience",
	"technical skills":        "skills",
	"core skills":             "skills",
	"skills and technologies": "skills",
	"personal projects":       "projects",
	"academic projects":       "projects",
	"key projects":            "projects",
	"selected projects":       "projects",
}

var (
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9 ]+`)
	multiSpaceRe  = regexp.MustCompile(`\s+`)
	upperTitleRe  = regexp.MustCompile(`^[A-Z /&-]+$`)
	titleLetterRe = regexp.MustCompile(`[A-Z]`)
)

// normalizeHeading lowercases a line, strips non-alphanumerics, and collapses
// whitespace so "  WORK  EXPERIENCE: " compares equal to "work experience".
func normalizeHeading(line string) string {
	l := strings.ToLower(strings.TrimSpace(line))
	l = nonAlnumRe.ReplaceAllString(l, " ")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(l, " "))
}

// looksLikeSectionTitle reports whether a trimmed line reads as the start of
// a new resume section: 3-40 chars of upper-case letters, spaces, '/', '&'
// or '-', with at least 3 letters (so "GO" or initials don't close a section).
func looksLikeSectionTitle(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) < 3 || len(line) > 40 {
		return false
	}
	if !upperTitleRe.MatchString(line) {
		return false
	}
	return len(titleLetterRe.FindAllString(line, -1)) >= 3
}

// ExtractSection returns the body of the first resume section whose heading
// matches one of the requested canonical names (or a known synonym). Lines
// are collected verbatim (trimmed) until the text ends or a line that looks
// like a new section title appears; scanning then continues so a later
// duplicate heading contributes too. Returns "" when no heading matches.
func ExtractSection(text string, headings ...string) string {
	wanted := make(map[string]struct{}, len(headings))
	for _, h := range headings {
		wanted[normalizeHeading(h)] = struct{}{}
	}
	matchesWanted := func(line string) bool {
		n := normalizeHeading(line)
		if n == "" {
			return false
		}
		if _, ok := wanted[n]; ok {
			return true
		}
		if canon, ok := headingSynonyms[n]; ok {
			_, ok := wanted[canon]
			return ok
		}
		return false
	}

	var collected []string
	inSection := false
	for _, line := range strings.Split(text, "\n") {
		if matchesWanted(line) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if looksLikeSectionTitle(line) {
			inSection = false
			continue
		}
		collected = append(collected, strings.TrimSpace(line))
	}
	return strings.TrimSpace(strings.Join(collected, "\n"))
}
