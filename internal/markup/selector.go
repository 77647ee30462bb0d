package markup

import (
	"regexp"
	"strings"
)

const namePattern = `[a-zA-Z][a-zA-Z0-9_-]*`

// selectorPattern is the shorthand grammar: classes, an optional id, classes.
var selectorPattern = regexp.MustCompile(
	`^(?P<before>(?:\.` + namePattern + `)*)(?P<id>#` + namePattern + `)?(?P<after>(?:\.` + namePattern + `)*)$`,
)

// Selector is a resolved .class#id shorthand.
type Selector struct {
	Classes []string
	ID      string
}

// ParseSelector resolves a shorthand such as ".foo#bar.baz".
func ParseSelector(s string) (Selector, error) {
	if s == "" {
		return Selector{}, NoSelectorList
	}

	m := selectorPattern.FindStringSubmatch(s)
	if m == nil {
		return Selector{}, BadSelectorList
	}

	var sel Selector
	for _, group := range []string{"before", "after"} {
		for _, class := range strings.Split(m[selectorPattern.SubexpIndex(group)], ".") {
			if class != "" {
				sel.Classes = append(sel.Classes, class)
			}
		}
	}
	if id := m[selectorPattern.SubexpIndex("id")]; id != "" {
		sel.ID = id[1:]
	}
	return sel, nil
}

// attributes expands the selector into synthetic class and id attributes.
// origin covers the whole shorthand.
func (s Selector) attributes(origin Origin) []Attribute {
	var attrs []Attribute
	if class := strings.TrimSpace(strings.Join(s.Classes, " ")); class != "" {
		attrs = append(attrs, Attribute{Name: "class", Value: class, Origin: origin})
	}
	if s.ID != "" {
		attrs = append(attrs, Attribute{Name: "id", Value: s.ID, Origin: origin})
	}
	return attrs
}
