// Package trace records interrupt transactions for inspection and replay
// comparison.
package trace

import (
	"fmt"
	"sync"
	"time"

	"github.com/tinyrange/plic/internal/plic"
)

// Kinds recorded in addition to plic.EventKind names.
const (
	KindHandler = "handler"
	KindFault   = "fault"
)

// Entry is one recorded step.
type Entry struct {
	Seq        uint64
	Time       time.Time
	Controller string
	Kind       string
	Source     uint32
	Edge       bool
	Detail     string
}

// Short renders the entry as kind(source), the notation used in test
// expectations.
func (e Entry) Short() string {
	return fmt.Sprintf("%s(%d)", e.Kind, e.Source)
}

// Sink receives entries as they are recorded.
type Sink interface {
	Write(Entry) error
}

// Recorder collects entries in memory and forwards them to sinks.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	sinks   []Sink
	seq     uint64
	now     func() time.Time
	errs    []error
}

// NewRecorder returns an empty recorder.
func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks, now: time.Now}
}

// AddSink attaches another sink.
func (r *Recorder) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Observe records a controller event; it has the plic.Observer signature.
func (r *Recorder) Observe(ev plic.Event) {
	r.add(Entry{Controller: ev.Controller, Kind: ev.Kind.String(), Source: ev.Source, Edge: ev.Edge})
}

// Note records a step that did not come from a controller, such as a
// second-level handler running.
func (r *Recorder) Note(controller, kind string, source uint32, detail string) {
	r.add(Entry{Controller: controller, Kind: kind, Source: source, Detail: detail})
}

func (r *Recorder) add(e Entry) {
	r.mu.Lock()
	r.seq++
	e.Seq = r.seq
	e.Time = r.now()
	r.entries = append(r.entries, e)
	sinks := r.sinks
	r.mu.Unlock()

	for _, s := range sinks {
		if err := s.Write(e); err != nil {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		}
	}
}

// Entries returns a copy of everything recorded.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Shorts returns the Short form of the entries whose kind is in kinds, or
// of all entries when kinds is empty.
func (r *Recorder) Shorts(kinds ...string) []string {
	want := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []string
	for _, e := range r.Entries() {
		if len(kinds) == 0 || want[e.Kind] {
			out = append(out, e.Short())
		}
	}
	return out
}

// Count returns how many entries of kind were recorded.
func (r *Recorder) Count(kind string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// SinkErrors returns errors returned by sinks.
func (r *Recorder) SinkErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// Reset drops recorded entries; sinks are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
