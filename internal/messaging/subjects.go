package messaging

// Subjects follow {domain}.{action}.{resource}.
const (
	SubjectSegmentJobsRun    = "segments.jobs.run"    // segment run requests
	SubjectSegmentResultsRun = "segments.results.run" // run results; append .{job_id}

	// SubjectSegmentOptionsChanged announces that profile or event data
	// changed and cached option catalogs are stale.
	SubjectSegmentOptionsChanged = "segments.options.changed"
)

// QueueSegmentWorkers is the queue group shared by segment run workers.
const QueueSegmentWorkers = "segments-workers"

// SegmentRunResultSubject returns the subject a job's result is published on.
// Example: segments.results.run.abc123
func SegmentRunResultSubject(jobID string) string {
	return SubjectSegmentResultsRun + "." + jobID
}
