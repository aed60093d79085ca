// Package script generates the AppleScript source executed against
// OmniFocus. Every generated script is self-contained: helper handlers are
// inlined because osascript offers no imports across invocations.
//
// Every local variable and handler the generator declares carries the
// reserved suffix LocalSuffix. AppleScript silently treats a local binding
// named like an application property (name, note, flagged, ...) as shadowing
// the property, which turns writes into no-ops and reads into empty results.
// Collisions scans emitted source for violations.
package script

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LocalSuffix is appended to every generated identifier.
const LocalSuffix = "_v"

// MissingValue is AppleScript's "no value" token.
const MissingValue = "missing value"

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Escape escapes backslash, double quote, newline, carriage return and tab
// for use inside an AppleScript string literal. strings.Replacer matches at
// each position in argument order, so a backslash is never escaped twice.
func Escape(value string) string {
	return escaper.Replace(value)
}

// Quote returns value as a double-quoted AppleScript string literal.
func Quote(value string) string {
	return `"` + Escape(value) + `"`
}

// Local returns the generated identifier for name.
func Local(name string) string {
	return name + LocalSuffix
}

// DateLiteral encodes t as an AppleScript date expression. The expression
// goes through the inlined makeDate_v handler instead of a `date "..."`
// literal, whose parsing depends on the user's locale settings. Absence is
// encoded as missing value, never as an empty string.
func DateLiteral(t *time.Time) string {
	if t == nil {
		return MissingValue
	}
	local := t.In(time.Local)
	seconds := local.Hour()*3600 + local.Minute()*60 + local.Second()
	return fmt.Sprintf("(my %s(%d, %d, %d, %d))", Local("makeDate"), local.Year(), int(local.Month()), local.Day(), seconds)
}

// Bool encodes a boolean literal.
func Bool(value bool) string {
	if value {
		return "true"
	}
	return "false"
}

// jsonLiteral returns an AppleScript string literal whose text is the JSON
// encoding of value. Used for envelopes the script returns verbatim.
func jsonLiteral(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		encoded = []byte(`{"error":"encode"}`)
	}
	return Quote(string(encoded))
}

func notFoundLiteral(kind, id string) string {
	return jsonLiteral(map[string]string{"error": "not_found", "kind": kind, "id": id})
}
