package observability

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"preflight/pkg/errors"
)

// defaultHistoryLimit bounds the retained error history. The oldest records
// are dropped once the limit is reached.
const defaultHistoryLimit = 500

// Record is one classified failure, never mutated after append.
type Record struct {
	ID        string    `json:"id"`
	Component string    `json:"component"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	File      string    `json:"file,omitempty"`
	Line      int       `json:"line,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Classifier inspects a raised failure and returns an error-type label.
type Classifier func(err error) string

// Handler reacts to a classified failure of its registered type.
type Handler func(record Record)

type patternEntry struct {
	re       *regexp.Regexp
	classify Classifier
}

// ErrorDetector classifies raised failures into error kinds via registered
// pattern matchers, dispatches per-kind handlers, and retains a bounded,
// queryable history per component.
//
// The detector is intentionally decoupled from Status: a single component
// may raise several classified errors during retries before its Status
// settles to failed.
type ErrorDetector struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	patterns []patternEntry
	handlers map[string]Handler
	history  []Record
	limit    int
}

// NewErrorDetector creates a detector with the default history bound.
func NewErrorDetector(logger *zap.Logger) *ErrorDetector {
	return &ErrorDetector{
		logger:   logger.Named("error_detector"),
		handlers: make(map[string]Handler),
		limit:    defaultHistoryLimit,
	}
}

// RegisterErrorPattern associates a regular expression over the failure
// message with a classifier. Patterns are evaluated in registration order
// and the first match wins.
func (d *ErrorDetector) RegisterErrorPattern(pattern string, classify Classifier) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errors.NewUsagef("invalid error pattern %q: %v", pattern, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.patterns = append(d.patterns, patternEntry{re: re, classify: classify})
	return nil
}

// RegisterErrorHandler associates a side-effecting handler with an
// error-type label. At most one handler per label; the last registration
// wins.
func (d *ErrorDetector) RegisterErrorHandler(errType string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[errType] = handler
}

// DetectError classifies the failure, appends a full record to the history,
// and invokes the handler registered for the resolved type, if any.
// Unmatched failures are classified by their concrete failure kind.
func (d *ErrorDetector) DetectError(component string, failure error) Record {
	message := ""
	if failure != nil {
		message = failure.Error()
	}

	record := Record{
		ID:        uuid.NewString(),
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
	}
	if _, file, line, ok := runtime.Caller(1); ok {
		record.File = file
		record.Line = line
	}

	var be *errors.BootError
	if stderrors.As(failure, &be) {
		record.Code = be.Code
	}

	d.mu.Lock()
	record.Type = d.classifyLocked(failure, message)
	d.history = append(d.history, record)
	if len(d.history) > d.limit {
		d.history = d.history[len(d.history)-d.limit:]
	}
	handler := d.handlers[record.Type]
	d.mu.Unlock()

	d.logger.Debug("error detected",
		zap.String("component", component),
		zap.String("type", record.Type),
		zap.String("message", message),
	)

	if handler != nil {
		handler(record)
	}
	return record
}

// classifyLocked resolves the error-type label under the detector lock.
func (d *ErrorDetector) classifyLocked(failure error, message string) string {
	for _, entry := range d.patterns {
		if entry.re.MatchString(message) {
			return entry.classify(failure)
		}
	}
	// No pattern matched: fall back to the concrete failure kind.
	if t := errors.TypeOf(failure); t != "" {
		return string(t)
	}
	if failure == nil {
		return "unknown"
	}
	return fmt.Sprintf("%T", failure)
}

// History returns a copy of the full error history in append order.
func (d *ErrorDetector) History() []Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Record, len(d.history))
	copy(out, d.history)
	return out
}

// HistoryFor returns the history filtered to one component.
func (d *ErrorDetector) HistoryFor(component string) []Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Record
	for _, r := range d.history {
		if r.Component == component {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the number of recorded errors.
func (d *ErrorDetector) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.history)
}

// CountFor returns the number of recorded errors for one component.
func (d *ErrorDetector) CountFor(component string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, r := range d.history {
		if r.Component == component {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error was recorded.
func (d *ErrorDetector) HasErrors() bool {
	return d.Count() > 0
}

// LastError returns the most recent record. The boolean is false when the
// history is empty.
func (d *ErrorDetector) LastError() (Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.history) == 0 {
		return Record{}, false
	}
	return d.history[len(d.history)-1], true
}

// LastErrorFor returns the most recent record for one component.
func (d *ErrorDetector) LastErrorFor(component string) (Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := len(d.history) - 1; i >= 0; i-- {
		if d.history[i].Component == component {
			return d.history[i], true
		}
	}
	return Record{}, false
}

// Clear drops the whole history. Registered patterns and handlers survive.
func (d *ErrorDetector) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = nil
}
