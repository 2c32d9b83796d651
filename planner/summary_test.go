package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	records := []OverlapRecord{
		{PUID: 1, FeatureID: "a", Amount: 10},
		{PUID: 2, FeatureID: "a", Amount: 0},
		{PUID: 2, FeatureID: "b", Amount: 50},
	}

	summary := Summarize(records)
	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, 60.0, summary.TotalArea)
	assert.Equal(t, 20.0, summary.MeanArea)
	assert.Equal(t, 50, summary.MaxArea)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}
