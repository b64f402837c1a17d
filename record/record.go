// Package record defines the log event value consumed by the write path.
// Records are produced by an upstream collector, are immutable once handed
// to the sink, and are never retained beyond the scope of one write.
package record

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// TimeLayout is the fixed-width, sortable encoding used when persisting
// a Record Timestamp.
const TimeLayout = "2006-01-02T15:04:05.000"

// Level is the severity of a Record.
type Level int8

const (
	Verbose Level = iota
	Debug
	Info
	Warning
	Error
	Fatal
)

// String returns the column representation of the Level.
func (l Level) String() string {
	switch l {
	case Verbose:
		return "Verbose"
	case Debug:
		return "Debug"
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	case Fatal:
		return "Fatal"
	default:
		return fmt.Sprintf("Level(%d)", l)
	}
}

// ParseLevel maps a case-insensitive name to its Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "verbose", "trace":
		return Verbose, nil
	case "debug":
		return Debug, nil
	case "info", "information":
		return Info, nil
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	case "fatal":
		return Fatal, nil
	}
	return 0, errors.Errorf("unrecognized level %q", s)
}

// Caller identifies the code site which produced a Record. It's persisted
// only when the sink is configured with the extended caller-info schema.
type Caller struct {
	ClassName  string
	MethodName string
	LineNumber int
}

// Record is a single structured log event.
type Record struct {
	// Timestamp is the point in time at which the event occurred.
	Timestamp time.Time
	// Level is the event severity.
	Level Level
	// Exception holds free-text failure detail, or is empty.
	Exception string
	// MessageTemplate is the raw, unrendered message template.
	MessageTemplate string
	// RenderedMessage is the template with bound arguments resolved to text.
	// If empty, Rendered derives it from MessageTemplate and Properties.
	RenderedMessage string
	// Properties maps structured property names to their values.
	Properties map[string]interface{}
	// Caller is optional code-site metadata.
	Caller *Caller
}

// Rendered returns RenderedMessage if set, and otherwise resolves {Name}
// holes of MessageTemplate against Properties.
func (r Record) Rendered() string {
	if r.RenderedMessage != "" || r.MessageTemplate == "" {
		return r.RenderedMessage
	}
	var b strings.Builder
	var rest = r.MessageTemplate

	for {
		var i = strings.IndexByte(rest, '{')
		if i == -1 {
			b.WriteString(rest)
			return b.String()
		}
		var j = strings.IndexByte(rest[i:], '}')
		if j == -1 {
			b.WriteString(rest)
			return b.String()
		}
		var value, ok = r.Properties[rest[i+1:i+j]]
		if !ok {
			// Leave unbound holes as written.
			b.WriteString(rest[:i+j+1])
		} else {
			b.WriteString(rest[:i])
			b.WriteString(fmt.Sprint(value))
		}
		rest = rest[i+j+1:]
	}
}

// FormatTimestamp encodes |t| with TimeLayout, first converting to UTC
// if |utc|.
func FormatTimestamp(t time.Time, utc bool) string {
	if utc {
		t = t.UTC()
	}
	return t.Format(TimeLayout)
}

// MarshalProperties serializes a property map to its compact text encoding.
// An empty or nil map encodes as the empty string (rather than "{}", which
// would clutter exported text).
func MarshalProperties(m map[string]interface{}) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	var b, err = json.Marshal(m)
	if err != nil {
		return "", errors.WithMessage(err, "marshalling properties")
	}
	return string(b), nil
}
