package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextHelpersCarryFields(t *testing.T) {
	InitLogger("info", true)

	entry := WithMatch("match-42")
	assert.Equal(t, "match-42", entry.Data["match_id"])

	entry = WithAnalysisContext("match-42", "football")
	assert.Equal(t, "match-42", entry.Data["match_id"])
	assert.Equal(t, "football", entry.Data["sport"])

	entry = WithJob("fixture_sync")
	assert.Equal(t, "fixture_sync", entry.Data["job_id"])

	entry = WithService("bet-intel")
	assert.Equal(t, "bet-intel", entry.Data["service"])
}
