package taskname

// Task type names shared between the API process (enqueue) and the worker
// process (handler registration).
const (
	// Report tasks
	ReportGenerate = "report:generate"
)
