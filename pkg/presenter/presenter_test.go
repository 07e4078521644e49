package presenter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/annad/pkg/reliability"
)

func TestBuildIncludesAllSections(t *testing.T) {
	rec := Build(Input{
		Summary:      "You have 16 GiB of RAM.",
		Details:      "MemTotal reported 16384 MB by free -m.",
		NextSteps:    []string{"none"},
		Reliability:  0.9,
		Label:        reliability.LabelHigh,
		EvidenceRefs: []string{"E0", "E1"},
	})
	assert.Contains(t, rec.Text, "[SUMMARY]")
	assert.Contains(t, rec.Text, "[DETAILS]")
	assert.Contains(t, rec.Text, "[EVIDENCE]")
	assert.Contains(t, rec.Text, "[RELIABILITY]")
	assert.Contains(t, rec.Text, "[NEXT STEPS]")
	assert.NotContains(t, rec.Text, "\U0001F600")
	assert.Equal(t, []string{"E0", "E1"}, rec.EvidenceIDsCited)
}

func TestBuildOmitsEmptySections(t *testing.T) {
	rec := Build(Input{Summary: "no ram fact known", Reliability: 0.1, Label: reliability.LabelVeryLow})
	assert.NotContains(t, rec.Text, "[DETAILS]")
	assert.NotContains(t, rec.Text, "[EVIDENCE]")
	assert.NotContains(t, rec.Text, "[NEXT STEPS]")
}
