package script

import (
	"fmt"
	"strings"
	"time"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
)

// ScopeKind selects the container a read enumerates.
type ScopeKind int

const (
	ScopeDocument ScopeKind = iota
	ScopeProject
	ScopeTask
	ScopeFolder
)

// Scope narrows a read to the flattened contents of one container. An
// unknown container id makes the script return a not_found envelope.
type Scope struct {
	Kind ScopeKind
	ID   string
}

func (s Scope) class() string {
	switch s.Kind {
	case ScopeProject:
		return "project"
	case ScopeTask:
		return "task"
	case ScopeFolder:
		return "folder"
	default:
		return ""
	}
}

type writer struct {
	b     strings.Builder
	depth int
}

func (w *writer) line(format string, args ...any) {
	w.b.WriteString(strings.Repeat("\t", w.depth))
	if len(args) == 0 {
		w.b.WriteString(format)
	} else {
		fmt.Fprintf(&w.b, format, args...)
	}
	w.b.WriteByte('\n')
}

func (w *writer) open(format string, args ...any) {
	w.line(format, args...)
	w.depth++
}

func (w *writer) close(format string) {
	w.depth--
	w.line("%s", format)
}

// orElse closes the current block and opens its else branch.
func (w *writer) orElse() {
	w.depth--
	w.line("else")
	w.depth++
}

func (w *writer) String() string {
	return w.b.String()
}

// document wraps body in the prelude and the application/document tell
// blocks.
func document(app string, body func(w *writer)) string {
	w := &writer{}
	w.b.WriteString(Prelude(app))
	w.line("")
	w.open("tell application %s", Quote(app))
	w.open("tell default document")
	body(w)
	w.close("end tell")
	w.close("end tell")
	return w.String()
}

// resolve binds local to the object of class with the given id or returns a
// not_found envelope.
func (w *writer) resolve(local, class, id string) {
	w.line("set matches_v to (flattened %ss whose id is %s)", class, Quote(id))
	w.open("if (count of matches_v) is 0 then")
	w.line("return %s", notFoundLiteral(class, id))
	w.close("end if")
	w.line("set %s to item 1 of matches_v", local)
}

// ensureTag binds tagRef_v to the tag named name, creating it when absent.
func (w *writer) ensureTag(name string) {
	w.line("set tagMatches_v to (flattened tags whose name is %s)", Quote(name))
	w.open("if (count of tagMatches_v) is 0 then")
	w.line("set tagRef_v to make new tag with properties {name:%s}", Quote(name))
	w.orElse()
	w.line("set tagRef_v to item 1 of tagMatches_v")
	w.close("end if")
}

// repetitionTemplate binds template_v to a rule instance to clone: the
// target's own rule when it has one, else the first repeating task in the
// document. Rules cannot be constructed directly.
func (w *writer) repetitionTemplate(target string) {
	if target == "" {
		w.line("set template_v to missing value")
	} else {
		w.line("set template_v to repetition rule of %s", target)
	}
	w.open("if template_v is missing value then")
	w.open("repeat with donor_v in (flattened tasks)")
	w.line("set template_v to repetition rule of donor_v")
	w.line("if template_v is not missing value then exit repeat")
	w.close("end repeat")
	w.close("end if")
	w.open("if template_v is missing value then")
	w.line("return %s", jsonLiteral(map[string]string{"error": "repetition_unavailable"}))
	w.close("end if")
}

func (w *writer) applyRepetition(target string, rule model.RepetitionRule) {
	w.line("copy template_v to rule_v")
	w.line("set recurrence of rule_v to %s", Quote(rule.Recurrence))
	w.line("set repetition method of rule_v to %s", methodConstant(rule.Method))
	w.line("set repetition rule of %s to rule_v", target)
}

func methodConstant(method model.RepetitionMethod) string {
	switch method {
	case model.RepeatStartAfterCompletion:
		return "start after completion"
	case model.RepeatDueAfterCompletion:
		return "due after completion"
	default:
		return "fixed repetition"
	}
}

// properties renders an AppleScript record literal from ordered pairs,
// skipping empty values.
type properties []string

func (p *properties) add(key, value string) {
	if value == "" {
		return
	}
	*p = append(*p, key+":"+value)
}

func (p *properties) addDate(key string, t *time.Time) {
	if t == nil {
		return
	}
	p.add(key, DateLiteral(t))
}

func (p properties) String() string {
	return "{" + strings.Join(p, ", ") + "}"
}

func whose(collection string, conditions []string) string {
	if len(conditions) == 0 {
		return "(" + collection + ")"
	}
	return "(" + collection + " whose " + strings.Join(conditions, " and ") + ")"
}

// updatedLiteral is the update envelope {"id":…,"updated_fields":[…]}
// evaluated against the resolved object in local.
func updatedLiteral(local string, fields []string) string {
	if fields == nil {
		fields = []string{}
	}
	list := jsonLiteral(fields)
	return fmt.Sprintf(`"{\"id\":" & my jsonString_v(id of %s) & ",\"updated_fields\":" & %s & "}"`, local, list)
}
