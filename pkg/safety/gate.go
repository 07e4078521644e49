package safety

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/annad/pkg/reality"
)

// classification is the fixed lookup table from mutation kind to risk
// level and confirm-phrase template. Irreversible is true when the action
// cannot be undone by a rollback command (e.g. a package purge that wipes
// config); such steps are floored at RiskMedium.
var classification = map[MutationKind]struct {
	risk          RiskLevel
	phraseVerb    string
	irreversible  bool
}{
	MutationPackageRemoval:    {risk: RiskMedium, phraseVerb: "remove package"},
	MutationKernelCmdline:     {risk: RiskHigh, phraseVerb: "change kernel cmdline"},
	MutationMirrorlistRefresh: {risk: RiskLow, phraseVerb: "refresh mirrorlist"},
	MutationColorToggle:       {risk: RiskInfo, phraseVerb: "toggle colored output"},
	MutationServiceRestart:    {risk: RiskLow, phraseVerb: "restart"},
	MutationForgetMemory:      {risk: RiskMedium, phraseVerb: "forget"},
	MutationArchiveRecipe:     {risk: RiskLow, phraseVerb: "archive recipe"},
}

// Gate is the safety gate. It classifies proposed mutations, issues
// phrase-confirmed pending mutations, and records reality-check vetoes,
// expired confirmations and approved confirmations in the change ledger;
// a mismatched confirm phrase is not recorded.
type Gate struct {
	mu      sync.Mutex
	pending map[string]PendingMutation
	ledger  *Ledger
	ttl     time.Duration
}

// NewGate constructs a Gate backed by the given ledger. ttl bounds how
// long a PendingMutation remains confirmable (default 2 minutes).
func NewGate(ledger *Ledger, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Gate{pending: make(map[string]PendingMutation), ledger: ledger, ttl: ttl}
}

// Propose classifies kind, constructs the exact confirm phrase, validates
// the rollback requirement, and — unless the reality-check result vetoes
// it — registers a new PendingMutation.
func (g *Gate) Propose(kind MutationKind, target string, commands, rollback []Command, evidenceIDs []string, check reality.Result) (PendingMutation, error) {
	cls, ok := classification[kind]
	if !ok {
		return PendingMutation{}, fmt.Errorf("%w: %q", ErrUnknownMutationKind, kind)
	}

	risk := cls.risk
	irreversible := cls.irreversible || len(rollback) == 0
	description := fmt.Sprintf("%s %s", cls.phraseVerb, target)
	if irreversible {
		if risk.rank() < RiskMedium.rank() {
			risk = RiskMedium
		}
		description = fmt.Sprintf("%s (irreversible: no rollback is possible for this action)", description)
	} else if len(rollback) == 0 {
		return PendingMutation{}, ErrMissingRollback
	}

	if check.Status == reality.StatusContradicted && (check.Severity == reality.SeverityMajor || check.Severity == reality.SeverityCritical) {
		g.ledger.Record(Entry{
			PlanID:      uuid.New().String(),
			Description: description,
			RiskLevel:   risk,
			Approved:    false,
			Reason:      "vetoed by reality-check: " + string(check.Severity),
			At:          time.Now(),
		})
		return PendingMutation{}, ErrVetoFromRealityCheck
	}

	phrase := cls.phraseVerb + " " + target
	pm := PendingMutation{
		PlanID:            uuid.New().String(),
		Kind:              kind,
		ChangeDescription: description,
		RiskLevel:         risk,
		Commands:          commands,
		RollbackCommands:  rollback,
		ConfirmPhrase:     phrase,
		EvidenceIDs:       evidenceIDs,
		CreatedAt:         time.Now(),
		ExpiresAt:         time.Now().Add(g.ttl),
	}

	g.mu.Lock()
	g.pending[pm.PlanID] = pm
	g.mu.Unlock()
	return pm, nil
}

// Get returns the pending mutation for planID, if any.
func (g *Gate) Get(planID string) (PendingMutation, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pm, ok := g.pending[planID]
	return pm, ok
}

// Confirm validates phrase against the pending mutation identified by
// planID. A mismatched phrase leaves the pending mutation in place so the
// caller can retry within the TTL; only expiry or an exact match consume
// it. Only the expiry and approval outcomes are recorded in the change
// ledger — a mistyped phrase is a client-side typo, not an attempted
// mutation, so it leaves no trace there. The caller (the daemon) is
// responsible for actually executing pm.Commands; Confirm only performs
// the gating.
func (g *Gate) Confirm(planID, phrase string) (PendingMutation, error) {
	g.mu.Lock()
	pm, ok := g.pending[planID]
	if !ok {
		g.mu.Unlock()
		return PendingMutation{}, ErrUnknownPlan
	}

	if pm.Expired(time.Now()) {
		delete(g.pending, planID)
		g.mu.Unlock()
		g.ledger.Record(Entry{PlanID: planID, Description: pm.ChangeDescription, RiskLevel: pm.RiskLevel, Approved: false, Reason: "expired", At: time.Now()})
		return PendingMutation{}, ErrExpired
	}
	if phrase != pm.ConfirmPhrase {
		g.mu.Unlock()
		return PendingMutation{}, ErrPhraseMismatch
	}

	delete(g.pending, planID)
	g.mu.Unlock()

	g.ledger.Record(Entry{
		PlanID:           planID,
		Description:      pm.ChangeDescription,
		RiskLevel:        pm.RiskLevel,
		Approved:         true,
		Commands:         pm.Commands,
		RollbackCommands: pm.RollbackCommands,
		At:               time.Now(),
	})
	return pm, nil
}

// DryRun renders the commands and rollback without executing, for the
// first-class dry-run mode.
func DryRun(pm PendingMutation) string {
	s := "would run:\n"
	for _, c := range pm.Commands {
		s += fmt.Sprintf("  %s %v\n", c.ToolID, c.Args)
	}
	if len(pm.RollbackCommands) > 0 {
		s += "rollback:\n"
		for _, c := range pm.RollbackCommands {
			s += fmt.Sprintf("  %s %v\n", c.ToolID, c.Args)
		}
	} else {
		s += "rollback: none (irreversible)\n"
	}
	return s
}
