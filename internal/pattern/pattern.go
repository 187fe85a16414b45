package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern matches tag-delimited spans of text and returns what lies between
// the opening and closing delimiters. Matching is shortest-match, so nested
// tags with the same name are not matched as a unit.
type Pattern struct {
	re *regexp.Regexp
}

var tagRe = regexp.MustCompile(`<.*?>`)

// Predefined patterns for the table markup the scraper walks.
var (
	Table  = ForTag("table")
	Row    = ForTag("tr")
	Header = ForTag("th")
	Cell   = ForTag("td")
)

// New compiles a pattern from an opening and closing delimiter expression.
// The inner content is captured lazily between the two.
func New(open, close string) (*Pattern, error) {
	re, err := regexp.Compile(open + `(.*?)` + close)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("pattern %q has no capture group", re.String())
	}
	return &Pattern{re: re}, nil
}

// ForTag builds the pattern for <tag ...>...</tag>. The tag must be a plain
// element name; it panics otherwise.
func ForTag(tag string) *Pattern {
	name := regexp.QuoteMeta(tag)
	p, err := New(`<`+name+`.*?>`, `</`+name+`>`)
	if err != nil {
		panic(err)
	}
	return p
}

// FindAll returns the inner text of every non-overlapping match in document
// order. With strip set, nested markup is removed and the result trimmed.
// No match yields an empty result, never an error.
func (p *Pattern) FindAll(text string, strip bool) []string {
	if p == nil || p.re == nil {
		return nil
	}
	matches := p.re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		v := m[1]
		if strip {
			v = StripTags(v)
		}
		out = append(out, v)
	}
	return out
}

// String returns the compiled expression.
func (p *Pattern) String() string {
	if p == nil || p.re == nil {
		return ""
	}
	return p.re.String()
}

// StripTags removes anything that looks like <...> and trims surrounding
// whitespace.
func StripTags(s string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(s, ""))
}
