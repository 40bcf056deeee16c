package rules

import (
	"fmt"
	"io"
	"strings"
)

// ValueError is returned for a rule value that would not survive a round
// trip through Parse.
type ValueError struct {
	Kind   Kind
	Target string
	Value  string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s[%q] value %q %s", e.Kind, e.Target, e.Value, e.Reason)
}

// FormatRule renders r as one intermediate-format line, without newline.
// Values that would not survive a round trip through Parse are rejected with
// a *ValueError.
func FormatRule(r Rule) (string, error) {
	if err := checkQuotable(r.Target); err != nil {
		return "", fmt.Errorf("%s target: %w", r.Kind, err)
	}
	quoted := make([]string, len(r.Values))
	for i, v := range r.Values {
		if checkQuotable(v) != nil {
			return "", &ValueError{Kind: r.Kind, Target: r.Target, Value: v, Reason: "cannot be quoted"}
		}
		if strings.Contains(v, ",") {
			return "", &ValueError{Kind: r.Kind, Target: r.Target, Value: v, Reason: "contains ','"}
		}
		quoted[i] = "'" + v + "'"
	}
	return fmt.Sprintf("%s['%s'] = [%s]", r.Kind, r.Target, strings.Join(quoted, ", ")), nil
}

func checkQuotable(s string) error {
	if strings.ContainsAny(s, "'\n") {
		return fmt.Errorf("%q cannot be quoted", s)
	}
	return nil
}

// Writer emits rules in the order they are written.
type Writer struct {
	w     io.Writer
	count int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write emits one rule line.
func (w *Writer) Write(r Rule) error {
	line, err := FormatRule(r)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w.w, line+"\n"); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count is the number of rules written so far.
func (w *Writer) Count() int {
	return w.count
}
