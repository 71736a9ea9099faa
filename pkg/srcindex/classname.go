package srcindex

import "regexp"

// classNamePattern matches "[ns::]*Class::member:line" and captures Class.
const classNamePattern = `^(?:\w*::)*?(\w+?)::\w+?:\d+$`

// ClassNameMatcher extracts the enclosing class name from a function key.
type ClassNameMatcher struct {
	re *regexp.Regexp
}

// NewClassNameMatcher compiles the class-name pattern.
func NewClassNameMatcher() ClassNameMatcher {
	return ClassNameMatcher{re: regexp.MustCompile(classNamePattern)}
}

// Match returns the class name of a key such as "Foo::Bar::baz:42" ("Bar").
// Free functions ("baz:42") do not match.
func (m ClassNameMatcher) Match(key string) (string, bool) {
	groups := m.re.FindStringSubmatch(key)
	if groups == nil {
		return "", false
	}

	return groups[1], true
}
