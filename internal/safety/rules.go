package safety

import (
	"regexp"
	"slices"
	"strings"
)

// Category groups dangerous keywords. Blocking categories hard-block on a
// match, the rest only warn.
type Category string

// Built-in keyword categories.
const (
	CategorySystem    Category = "system"
	CategoryFinancial Category = "financial"
	CategoryPersonal  Category = "personal"
	CategoryNetwork   Category = "network"
)

// Blocking reports whether a keyword hit in this category blocks.
func (c Category) Blocking() bool {
	return c == CategorySystem || c == CategoryNetwork
}

func defaultKeywords() []keywordSet {
	return []keywordSet{
		newKeywordSet(CategorySystem, "rm", "del", "format", "shutdown", "reboot", "kill", "sudo", "chmod"),
		newKeywordSet(CategoryFinancial, "bank", "credit", "password", "social security", "ssn"),
		newKeywordSet(CategoryPersonal, "private", "confidential", "secret", "personal"),
		newKeywordSet(CategoryNetwork, "hack", "exploit", "virus", "malware", "crack"),
	}
}

type keyword struct {
	text string
}

// newKeyword matches by substring, so inflected forms ("hacking",
// "exploits") hit their stem.
func newKeyword(text string) keyword {
	return keyword{text: strings.ToLower(strings.TrimSpace(text))}
}

func (k keyword) match(lower string) bool {
	return strings.Contains(lower, k.text)
}

type keywordSet struct {
	category Category
	keywords []keyword
}

func newKeywordSet(c Category, words ...string) keywordSet {
	set := keywordSet{category: c}
	for _, w := range words {
		set.keywords = append(set.keywords, newKeyword(w))
	}
	return set
}

func (s keywordSet) contains(text string) bool {
	return slices.ContainsFunc(s.keywords, func(k keyword) bool { return k.text == text })
}

// scanKeywords applies the two-tier keyword rule to text. A hit in a blocking
// category returns a blocked verdict immediately; other hits add warnings.
func scanKeywords(sets []keywordSet, text, subject string, f *findings) (Verdict, bool) {
	lower := strings.ToLower(text)
	for _, set := range sets {
		for _, k := range set.keywords {
			if !k.match(lower) {
				continue
			}
			if set.category.Blocking() {
				return block(RiskHigh, "%s contains dangerous keyword: %s", subject, k.text), true
			}
			f.warn(RiskMedium, "%s contains sensitive keyword: %s", subject, k.text)
		}
	}
	return Verdict{}, false
}

var codeExecPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)exec\s*\(`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)system\s*\(`),
	regexp.MustCompile(`(?i)shell\s*\(`),
	regexp.MustCompile(`(?i)subprocess\.`),
	regexp.MustCompile(`(?i)\bos\.`),
	regexp.MustCompile(`(?i)import\s+os\b`),
	regexp.MustCompile(`(?i)import\s+subprocess`),
}

var dangerousPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/etc/`),
	regexp.MustCompile(`(?i)/sys/`),
	regexp.MustCompile(`(?i)/proc/`),
	regexp.MustCompile(`(?i)\.(exe|bat|sh|scr)$`),
}

var sensitiveURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)://.*password`),
	regexp.MustCompile(`(?i)://.*login`),
	regexp.MustCompile(`(?i)://.*admin`),
	regexp.MustCompile(`(?i)://.*bank`),
	regexp.MustCompile(`(?i)://.*payment`),
}

var shellMetachars = regexp.MustCompile("[<>\"|&;`$()]")

var destructiveTargets = []string{
	"delete", "remove", "format", "uninstall", "shutdown",
	"restart", "reset", "clear all", "factory reset",
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	return slices.ContainsFunc(patterns, func(re *regexp.Regexp) bool { return re.MatchString(s) })
}
