package monitoring

import (
	"sync"
	"time"
)

// Monitor reports errors that should reach an operator but must not stop the
// dispatch loop.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// Recover is deferred at the top of long running goroutines. It reports
	// the panic and re-panics.
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor drops every report.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

// Recorder keeps captured errors in memory. Tests use it to assert on what
// the dispatcher reported. Read the fields once the reporting goroutines are
// done.
type Recorder struct {
	mu     sync.Mutex
	Errors []error
	Tags   []map[string]string
}

func (r *Recorder) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, err)
	r.Tags = append(r.Tags, tags)
}

func (r *Recorder) Recover()            {}
func (r *Recorder) Flush(time.Duration) {}
