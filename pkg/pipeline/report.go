package pipeline

import (
	"fmt"
	"strings"

	"github.com/tunogya/saliency/pkg/store"
)

// Failure records a skipped batch
type Failure struct {
	Batch   BatchKey
	Feature string
	Err     error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s w%d %s feature=%q: %v", f.Batch.Dataset, f.Batch.Window, f.Batch.Metric, f.Feature, f.Err)
}

// Report summarizes a run
type Report struct {
	Written  []store.Written
	Failures []Failure
}

// Names returns the written artifact names in write order
func (r *Report) Names() []string {
	names := make([]string, len(r.Written))
	for i, w := range r.Written {
		names[i] = w.Name
	}
	return names
}

// OK returns true if no batch was skipped
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d artifacts written, %d batches skipped", len(r.Written), len(r.Failures))
	for _, f := range r.Failures {
		b.WriteString("\n  skipped: ")
		b.WriteString(f.String())
	}
	return b.String()
}
