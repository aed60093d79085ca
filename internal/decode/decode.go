package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
)

// Update is the envelope update scripts return.
type Update struct {
	ID            string   `json:"id"`
	UpdatedFields []string `json:"updated_fields"`
}

// Ack is the envelope delete and reorder scripts return.
type Ack struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Moved   bool   `json:"moved"`
}

type envelope struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	ID    string `json:"id"`
}

// scriptError maps an error envelope to the error taxonomy. It returns nil
// for anything that is not an envelope.
func scriptError(trimmed string) error {
	if !strings.HasPrefix(trimmed, "{") || !strings.Contains(trimmed, `"error"`) {
		return nil
	}
	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil || env.Error == "" {
		return nil
	}
	switch env.Error {
	case "not_found":
		return errs.NotFound(env.Kind, env.ID)
	case "repetition_unavailable":
		return errs.Validation("repetition_rule", "no existing repetition rule to clone; OmniFocus cannot create one from scratch")
	default:
		return fmt.Errorf("script reported error %q", env.Error)
	}
}

// escapeControl rewrites raw C0 control bytes other than tab, LF and CR as
// \u00XX escapes. In serializer output they only occur inside string
// literals, where JSON forbids them unescaped.
func escapeControl(s string) string {
	if strings.IndexFunc(s, isStrayControl) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isStrayControl(rune(c)) {
			fmt.Fprintf(&b, `\u%04x`, c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isStrayControl(r rune) bool {
	return r < 0x20 && r != '\t' && r != '\n' && r != '\r'
}

func decodeList[R any, T any](raw string, convert func(R) T) ([]T, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return []T{}, nil
	}
	if err := scriptError(trimmed); err != nil {
		return nil, err
	}
	var records []R
	if err := json.Unmarshal([]byte(escapeControl(trimmed)), &records); err != nil {
		return nil, errs.Decode(raw, err)
	}
	out := make([]T, 0, len(records))
	for _, record := range records {
		out = append(out, convert(record))
	}
	return out, nil
}

func decodeOne[R any, T any](raw string, convert func(R) T) (T, error) {
	var zero T
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return zero, errs.Decode(raw, errors.New("empty output"))
	}
	if err := scriptError(trimmed); err != nil {
		return zero, err
	}
	var record R
	if err := json.Unmarshal([]byte(escapeControl(trimmed)), &record); err != nil {
		return zero, errs.Decode(raw, err)
	}
	return convert(record), nil
}

func identity[T any](value T) T {
	return value
}

func Tasks(raw string) ([]model.Task, error) {
	return decodeList(raw, rawTask.toModel)
}

func Task(raw string) (model.Task, error) {
	return decodeOne(raw, rawTask.toModel)
}

func Projects(raw string) ([]model.Project, error) {
	return decodeList(raw, rawProject.toModel)
}

func Project(raw string) (model.Project, error) {
	return decodeOne(raw, rawProject.toModel)
}

func Folders(raw string) ([]model.Folder, error) {
	return decodeList(raw, rawFolder.toModel)
}

func Folder(raw string) (model.Folder, error) {
	return decodeOne(raw, rawFolder.toModel)
}

func Tags(raw string) ([]model.Tag, error) {
	return decodeList(raw, rawTag.toModel)
}

func Tag(raw string) (model.Tag, error) {
	return decodeOne(raw, rawTag.toModel)
}

func Updated(raw string) (Update, error) {
	update, err := decodeOne(raw, identity[Update])
	if err == nil && update.ID == "" {
		return Update{}, errs.Decode(raw, errors.New("missing id"))
	}
	return update, err
}

func Acknowledged(raw string) (Ack, error) {
	return decodeOne(raw, identity[Ack])
}

// DatabaseName decodes the safety probe's output: plain text, not JSON.
func DatabaseName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", errs.Decode(raw, errors.New("empty database name"))
	}
	return name, nil
}
