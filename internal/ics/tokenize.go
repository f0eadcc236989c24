package ics

import (
	"strings"
)

// propKind tags the calendar properties the parser cares about.
type propKind int

const (
	propOther propKind = iota
	propBegin
	propEnd
	propDTStart
	propSummary
	propCategories
	propDescription
	propRRule
	propCalendarTZ
)

var propKinds = map[string]propKind{
	"BEGIN":         propBegin,
	"END":           propEnd,
	"DTSTART":       propDTStart,
	"SUMMARY":       propSummary,
	"CATEGORIES":    propCategories,
	"DESCRIPTION":   propDescription,
	"RRULE":         propRRule,
	"X-WR-TIMEZONE": propCalendarTZ,
}

// property is one tokenized content line: NAME[;PARAM=value]*:VALUE.
type property struct {
	kind   propKind
	name   string
	params map[string]string
	value  string
}

func (p property) param(name string) string {
	return p.params[name]
}

// unfoldLines splits text into logical lines. A line starting with a space
// or tab continues the previous one; exactly one leading whitespace
// character is dropped before joining.
func unfoldLines(text string) []string {
	text = strings.ReplaceAll(text, "\r", "")
	raw := strings.Split(text, "\n")

	out := make([]string, 0, len(raw))
	for _, ln := range raw {
		if len(out) > 0 && (strings.HasPrefix(ln, " ") || strings.HasPrefix(ln, "\t")) {
			out[len(out)-1] += ln[1:]
			continue
		}
		out = append(out, ln)
	}
	return out
}

// tokenizeLine parses a logical line. Lines without a name/value colon
// report ok=false.
func tokenizeLine(line string) (property, bool) {
	idx := valueSeparator(line)
	if idx <= 0 {
		return property{}, false
	}

	head := line[:idx]
	segs := splitOutsideQuotes(head, ';')

	name := strings.ToUpper(strings.TrimSpace(segs[0]))
	if name == "" {
		return property{}, false
	}

	p := property{
		kind:  propKinds[name],
		name:  name,
		value: line[idx+1:],
	}

	for _, seg := range segs[1:] {
		k, v, found := strings.Cut(seg, "=")
		if !found {
			continue
		}
		if p.params == nil {
			p.params = make(map[string]string)
		}
		p.params[strings.ToUpper(strings.TrimSpace(k))] = strings.Trim(v, `"`)
	}

	return p, true
}

// valueSeparator returns the index of the first ':' not inside a quoted
// parameter value, or -1.
func valueSeparator(line string) int {
	quoted := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case ':':
			if !quoted {
				return i
			}
		}
	}
	return -1
}

func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	quoted := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case sep:
			if !quoted {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// unescapeText resolves TEXT value escapes (\n, \, \; \\).
func unescapeText(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c != '\\' || i+1 == len(v) {
			b.WriteByte(c)
			continue
		}
		i++
		switch v[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}
