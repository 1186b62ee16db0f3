package converter

// Reporter receives conversion events. Progress is called once per processed
// page with a monotonically increasing count; exactly one of Success or
// Failure is called when a conversion ends.
type Reporter interface {
	Progress(current, total int)
	Success(outputPath string)
	Failure(reason string)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) Progress(current, total int) {}
func (NopReporter) Success(outputPath string) {}
func (NopReporter) Failure(reason string) {}
