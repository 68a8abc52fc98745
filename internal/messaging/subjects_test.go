package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentRunResultSubject(t *testing.T) {
	assert.Equal(t, "segments.results.run.abc123", SegmentRunResultSubject("abc123"))
	assert.Equal(t, "segments.jobs.run", SubjectSegmentJobsRun)
	assert.Equal(t, "segments-workers", QueueSegmentWorkers)
}
