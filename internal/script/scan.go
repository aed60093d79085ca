package script

import (
	"regexp"
	"sort"
	"strings"
)

// PropertyNames lists OmniFocus object properties, class names and
// AppleScript built-ins that a local binding must never be named after.
var PropertyNames = map[string]struct{}{}

func init() {
	for _, name := range strings.Fields(`
		id name note flagged completed dropped status tag tags task tasks
		project projects folder folders container containing parent
		due defer completion creation modification estimated minutes
		repetition rule recurrence method interval review steps unit fixed
		sequential available blocked effectively inbox next last first
		date time year month day hours weekday
		class contents text length count result value values item items
		list record string number integer real boolean
		document window application version position location title
		beginning end every some middle index
		source find replacement separator flag digits clock
	`) {
		PropertyNames[name] = struct{}{}
	}
}

// Declaration is one identifier bound by generated source.
type Declaration struct {
	Identifier string
	Line       int
}

// Collision is a declared identifier that can shadow an application
// property.
type Collision struct {
	Declaration
	Reason string
}

var (
	stringLiteralPattern = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)
	setPattern           = regexp.MustCompile(`\bset\s+([A-Za-z][A-Za-z0-9_]*)\s+to\b`)
	copyPattern          = regexp.MustCompile(`\bcopy\s+.+\s+to\s+([A-Za-z][A-Za-z0-9_]*)\s*$`)
	repeatPattern        = regexp.MustCompile(`\brepeat\s+with\s+([A-Za-z][A-Za-z0-9_]*)\s+(?:in|from)\b`)
	handlerPattern       = regexp.MustCompile(`^\s*on\s+([A-Za-z][A-Za-z0-9_]*)\s*\(([^)]*)\)`)
	localPattern         = regexp.MustCompile(`^\s*local\s+(.+)$`)
)

// Declarations extracts every identifier source binds: set/copy targets,
// repeat loop variables, handler names and parameters, and local
// declarations. String literals are ignored.
func Declarations(source string) []Declaration {
	var out []Declaration
	for index, raw := range strings.Split(source, "\n") {
		line := stringLiteralPattern.ReplaceAllString(raw, `""`)
		number := index + 1
		add := func(identifier string) {
			identifier = strings.TrimSpace(identifier)
			if identifier != "" {
				out = append(out, Declaration{Identifier: identifier, Line: number})
			}
		}
		for _, match := range setPattern.FindAllStringSubmatch(line, -1) {
			add(match[1])
		}
		if match := copyPattern.FindStringSubmatch(line); match != nil {
			add(match[1])
		}
		if match := repeatPattern.FindStringSubmatch(line); match != nil {
			add(match[1])
		}
		if match := handlerPattern.FindStringSubmatch(line); match != nil {
			add(match[1])
			for _, param := range strings.Split(match[2], ",") {
				add(param)
			}
		}
		if match := localPattern.FindStringSubmatch(line); match != nil {
			for _, name := range strings.Split(match[1], ",") {
				add(name)
			}
		}
	}
	return out
}

// Collisions reports declarations lacking LocalSuffix or named after a
// property. An empty result means source is safe to run.
func Collisions(source string) []Collision {
	var out []Collision
	for _, declaration := range Declarations(source) {
		switch {
		case !strings.HasSuffix(declaration.Identifier, LocalSuffix):
			out = append(out, Collision{Declaration: declaration, Reason: "missing reserved suffix " + LocalSuffix})
		case isPropertyName(declaration.Identifier):
			out = append(out, Collision{Declaration: declaration, Reason: "shadows a property name"})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

func isPropertyName(identifier string) bool {
	_, ok := PropertyNames[strings.ToLower(identifier)]
	return ok
}
