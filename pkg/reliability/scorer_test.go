package reliability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/annad/pkg/reality"
)

func TestScoreHighWhenVerifiedAndCited(t *testing.T) {
	score := Score(Input{
		AnswerText:   "You have 16 GiB of RAM.",
		EvidenceRefs: []string{"E1"},
		Check:        reality.Result{Status: reality.StatusVerified, Confidence: 0.95},
	})
	assert.Greater(t, score, 0.8)
}

func TestScoreCapsAtPoint6WhenUncited(t *testing.T) {
	score := Score(Input{
		AnswerText: "Something about the system.",
		Check:      reality.Result{Status: reality.StatusVerified, Confidence: 0.99},
	})
	assert.LessOrEqual(t, score, 0.6)
}

func TestScoreCapsAtPoint4ForFallback(t *testing.T) {
	score := Score(Input{
		AnswerText:   "Root filesystem: 40% used.",
		EvidenceRefs: []string{"E1"},
		Check:        reality.Result{Status: reality.StatusVerified, Confidence: 0.99},
		FromFallback: true,
	})
	assert.LessOrEqual(t, score, 0.4)
}

func TestScoreCapsAtPoint2WhenOutOfIterations(t *testing.T) {
	score := Score(Input{
		AnswerText:         "I was not able to conclude.",
		Check:              reality.Result{Status: reality.StatusInconclusive},
		RanOutOfIterations: true,
	})
	assert.LessOrEqual(t, score, 0.2)
}

func TestScoreSubtractsRetryPenalty(t *testing.T) {
	without := Score(Input{AnswerText: "RAM is 16 GiB.", EvidenceRefs: []string{"E1"}, Check: reality.Result{Status: reality.StatusVerified, Confidence: 0.9}})
	with := Score(Input{AnswerText: "RAM is 16 GiB.", EvidenceRefs: []string{"E1"}, Check: reality.Result{Status: reality.StatusVerified, Confidence: 0.9}, RetryCount: 2})
	assert.Less(t, with, without)
}

func TestLabelFor(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, LabelHigh, th.LabelFor(0.9))
	assert.Equal(t, LabelMedium, th.LabelFor(0.75))
	assert.Equal(t, LabelLow, th.LabelFor(0.5))
	assert.Equal(t, LabelVeryLow, th.LabelFor(0.1))
}
