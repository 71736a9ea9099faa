package cxxscan

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidDefine is returned for a define without a valid macro name.
var ErrInvalidDefine = errors.New("invalid define")

var macroName = regexp.MustCompile(`^[A-Za-z_]\w*$`)

type define struct {
	name  string
	value string
	re    *regexp.Regexp
}

// Defines holds object-like macros substituted into sources before parsing,
// so that export decorations such as "class API_EXPORT Widget" parse cleanly.
type Defines struct {
	list []define
}

// ParseDefines parses entries of the form "NAME value" or "#define NAME value".
// Function-like macros ("NAME(x) ...") are skipped. A missing value expands to nothing.
func ParseDefines(entries []string) (*Defines, error) {
	defs := &Defines{}

	for _, entry := range entries {
		entry = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(entry), "#define"))
		if entry == "" {
			continue
		}

		fields := strings.Fields(entry)
		name, value := fields[0], strings.Join(fields[1:], " ")

		if strings.Contains(name, "(") {
			continue
		}

		if !macroName.MatchString(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDefine, entry)
		}

		defs.list = append(defs.list, define{
			name:  name,
			value: value,
			re:    regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`),
		})
	}

	return defs, nil
}

// Len returns the number of macros.
func (d *Defines) Len() int {
	if d == nil {
		return 0
	}

	return len(d.list)
}

// Expand substitutes every macro in src, in declaration order.
func (d *Defines) Expand(src []byte) []byte {
	if d == nil {
		return src
	}

	for _, def := range d.list {
		src = def.re.ReplaceAllLiteral(src, []byte(def.value))
	}

	return src
}
