package artifact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)

	key := objectKey("verifind-runs", now, "run_20260820T103000Z_abc.json")
	assert.Equal(t, "verifind-runs/2026/08/run_20260820T103000Z_abc.json", key)

	// Empty prefix stays clean, no leading slash.
	key = objectKey("", now, "report.txt")
	assert.Equal(t, "2026/08/report.txt", key)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("/tmp/run.json"))
	assert.Equal(t, "text/plain; charset=utf-8", contentType("/tmp/run.txt"))
}
