package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/annad/pkg/catalog"
	"github.com/codeready-toolchain/annad/pkg/evidence"
	"github.com/codeready-toolchain/annad/pkg/facts"
	"github.com/codeready-toolchain/annad/pkg/fallback"
	"github.com/codeready-toolchain/annad/pkg/memory"
	"github.com/codeready-toolchain/annad/pkg/presenter"
	"github.com/codeready-toolchain/annad/pkg/reality"
	"github.com/codeready-toolchain/annad/pkg/reliability"
	"github.com/codeready-toolchain/annad/pkg/safety"
	"github.com/codeready-toolchain/annad/pkg/session"
	"github.com/codeready-toolchain/annad/pkg/telemetry"
	"github.com/codeready-toolchain/annad/pkg/thinker"
)

// Orchestrator runs the iterating thinker↔tool loop for one Session.
type Orchestrator struct {
	Executor         *catalog.Executor
	Thinker          thinker.Thinker
	Facts            *facts.Cache
	Thresholds       reliability.Thresholds
	VerifiedThreshold float64 // passed to reality.RecommendedAction
	History          reality.HistoricalLookup

	// Memory and Recipes back the introspection intents ("what have you
	// learned", "list recipes", "show recipe for X", "search memory for
	// Z") and the recipe lifecycle (FindByIntent/Create/RecordReuse/
	// RecordMismatch). Both are optional: a nil value simply disables
	// that surface rather than panicking.
	Memory  *memory.Store
	Recipes *memory.RecipeStore

	// Gate proposes the "forget about Y" mutation through the safety
	// gate's phrase-confirmation flow. Nil disables the forget intent.
	Gate *safety.Gate
}

// Outcome is the result of running one session to completion.
type Outcome struct {
	Record       presenter.Record
	AskUser      string // non-empty if the loop terminated by asking the user
	UsedFallback bool
	Reality      reality.Result
	RecipeAction memory.RecipeAction
}

// Run drives sess through the orchestrator loop: seed E0 telemetry,
// optionally inject learned facts, then iterate thinker↔tool calls until
// a final_answer, a terminal ask_user, or the iteration budget is spent.
func (o *Orchestrator) Run(ctx context.Context, sess *session.Session) (Outcome, error) {
	if intent, ok := fallback.MatchIntent(sess.Query); ok {
		if out, handled, err := o.tryIntrospection(sess, intent); err != nil {
			return Outcome{}, err
		} else if handled {
			return out, nil
		}
	}

	snap := telemetry.Collect(ctx, o.Executor)
	if _, err := sess.Evidence.Add(evidence.SourceTelemetry, "baseline telemetry", snap.Render(), 0, false); err != nil {
		return Outcome{}, fmt.Errorf("orchestrator: seed telemetry evidence: %w", err)
	}

	o.injectLearnedFacts(sess)

	if o.Recipes != nil {
		if r, ok := o.Recipes.FindByIntent(sess.Query); ok {
			sess.MatchedRecipeID = r.RecipeID
			o.replayRecipe(ctx, sess, r)
		}
	}

	for {
		exhausted := sess.AdvanceIteration()

		step, err := o.askThinker(ctx, sess)
		if err != nil {
			sess.RecordRetry()
			if sess.RetryCount() > 1 {
				return o.consultFallbackOrGiveUp(ctx, sess, "thinker malfunctioned across retries")
			}
			continue
		}

		switch step.Kind {
		case thinker.StepDecideTool:
			o.runProbe(ctx, sess, step.DecideTool)

		case thinker.StepAskUser:
			if sess.Iteration() <= 2 {
				out, handled, err := o.tryFallback(ctx, sess)
				if err != nil {
					return Outcome{}, err
				}
				if handled {
					return out, nil
				}
			}
			return Outcome{AskUser: step.AskUser.UserQuestion}, nil

		case thinker.StepFinalAnswer:
			return o.finalize(ctx, sess, step.FinalAnswer.Answer, step.FinalAnswer.EvidenceRefs, false)

		default:
			sess.RecordRetry()
		}

		midpoint := (sess.MaxIteration() + 1) / 2
		if sess.Iteration() >= midpoint && sess.Evidence.Len() >= 2 {
			if out, handled, err := o.tryFallbackIfGoodEnough(ctx, sess); err != nil {
				return Outcome{}, err
			} else if handled {
				return out, nil
			}
		}

		if exhausted {
			return o.consultFallbackOrGiveUp(ctx, sess, "iteration budget exhausted")
		}
	}
}

func (o *Orchestrator) askThinker(ctx context.Context, sess *session.Session) (thinker.Step, error) {
	state := thinker.State{
		Query:        sess.Query,
		Iteration:    sess.Iteration(),
		EvidenceText: renderEvidence(sess.Evidence),
		CatalogText:  renderCatalog(sess.Catalog),
	}
	step, err := o.Thinker.Ask(ctx, state)
	if err != nil {
		return thinker.Step{}, err
	}
	return step, nil
}

// runProbe executes a decide_tool step, recording a rejection as evidence
// when the tool id is unknown rather than failing the iteration.
func (o *Orchestrator) runProbe(ctx context.Context, sess *session.Session, dt *thinker.DecideTool) {
	spec, ok := sess.Catalog.Lookup(dt.ToolID)
	if !ok {
		sess.Evidence.Add(evidence.SourceTelemetry, "rejected: not in catalog",
			fmt.Sprintf("tool_id %q is not a known probe", dt.ToolID), 0, false)
		return
	}
	if len(dt.Arguments) > len(spec.ExtraArgsSchema) {
		sess.Evidence.Add(evidence.SourceTelemetry, "rejected: extra arguments not in schema",
			fmt.Sprintf("tool_id %q accepts at most %d extra argument(s), got %d", dt.ToolID, len(spec.ExtraArgsSchema), len(dt.Arguments)), 0, false)
		return
	}

	result, err := o.Executor.Execute(ctx, dt.ToolID, dt.Arguments)
	if err != nil {
		sess.Evidence.Add(evidence.SourceTelemetry, "rejected: missing arg or execution error",
			err.Error(), -1, false)
		return
	}

	content := result.Stdout
	if result.Status != catalog.StatusSuccess {
		content = fmt.Sprintf("exit=%d stderr=%s", result.ExitCode, result.Stderr)
	}
	id, err := sess.Evidence.Add(evidence.Source(dt.ToolID), dt.Why, content, result.ExitCode, result.StdoutTruncated)
	if err != nil {
		return
	}

	for _, pf := range o.Executor.Parse(dt.ToolID, result.Stdout) {
		o.Facts.Upsert(ctx, pf.Category, pf.Value, id, spec.Freshness)
	}
}

// replayRecipe runs a matched recipe's steps as ordinary probes before the
// thinker loop starts, so the thinker (or the fallback) sees the same
// evidence a prior successful session collected.
func (o *Orchestrator) replayRecipe(ctx context.Context, sess *session.Session, r memory.Recipe) {
	for _, step := range r.Steps {
		o.runProbe(ctx, sess, &thinker.DecideTool{
			ToolID:    step.ToolID,
			Arguments: step.Args,
			Why:       "replaying recipe " + r.RecipeID,
		})
	}
}

// tryIntrospection handles the five memory/recipe introspection intents
// ("what have you learned", "list recipes", "show recipe for X", "forget
// about Y", "search memory for Z") as ordinary queries, entirely outside
// the catalog/thinker loop. "Forget" is a mutation and is staged with the
// safety gate rather than answered directly.
func (o *Orchestrator) tryIntrospection(sess *session.Session, intent fallback.Intent) (Outcome, bool, error) {
	if intent == fallback.IntentForgetMemory {
		return o.proposeForget(sess)
	}

	ans, ok := fallback.AnswerIntrospection(sess.Query, intent, o.Memory, o.Recipes)
	if !ok {
		return Outcome{}, false, nil
	}

	sess.RecordFallback()
	check := reality.Result{Status: reality.StatusVerified, Confidence: 1}
	score := reliability.Score(reliability.Input{
		AnswerText:   ans.Answer,
		EvidenceRefs: ans.EvidenceRefs,
		Check:        check,
		FromFallback: true,
	})
	rec := presenter.Build(presenter.Input{
		Summary:     ans.Answer,
		Details:     ans.Reasoning,
		Reliability: score,
		Label:       o.Thresholds.LabelFor(score),
	})
	sess.Finish()
	return Outcome{Record: rec, UsedFallback: true, Reality: check}, true, nil
}

// proposeForget stages a MutationForgetMemory plan for every session record
// matching the query's target, rather than archiving anything immediately:
// the actual archival happens only once the daemon sees a matching phrase
// confirmation through the safety gate.
func (o *Orchestrator) proposeForget(sess *session.Session) (Outcome, bool, error) {
	if o.Gate == nil || o.Memory == nil {
		return Outcome{}, false, nil
	}

	target := fallback.IntrospectionTarget(sess.Query)
	if target == "" {
		return Outcome{AskUser: "what should I forget? name a topic or a past question to search for."}, true, nil
	}

	matches, err := o.Memory.Search(target, 5)
	if err != nil {
		return Outcome{}, false, fmt.Errorf("orchestrator: searching memory for forget target: %w", err)
	}
	if len(matches) == 0 {
		return Outcome{AskUser: fmt.Sprintf("I could not find anything in memory matching %q to forget.", target)}, true, nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.MemoryID)
	}

	pm, err := o.Gate.Propose(
		safety.MutationForgetMemory, target,
		nil, nil, ids,
		reality.Result{Status: reality.StatusVerified, Confidence: 1},
	)
	if err != nil {
		return Outcome{}, false, fmt.Errorf("orchestrator: proposing forget mutation: %w", err)
	}

	msg := fmt.Sprintf("this will archive %d memory record(s) matching %q. To confirm, say exactly: %q",
		len(ids), target, pm.ConfirmPhrase)
	return Outcome{AskUser: msg}, true, nil
}

// injectLearnedFacts seeds the evidence list with any cached fact whose
// category the query keywords touch, so the thinker can answer without
// re-running a probe.
func (o *Orchestrator) injectLearnedFacts(sess *session.Session) {
	for _, category := range facts.MatchCategories(sess.Query) {
		if f, ok := o.Facts.Get(category); ok {
			sess.Evidence.Add(evidence.SourceLearnedFact,
				fmt.Sprintf("cached fact: %s", category), f.Value, 0, false)
		}
	}
	if pkgCategory, ok := facts.MatchPackageCategory(sess.Query); ok {
		if f, ok := o.Facts.Get(pkgCategory); ok {
			sess.Evidence.Add(evidence.SourceLearnedFact,
				fmt.Sprintf("cached fact: %s", pkgCategory), f.Value, 0, false)
		}
	}
}

// tryFallback consults the deterministic fallback unconditionally
// (used on the early-ask_user tie-break) and finalizes if it answers.
func (o *Orchestrator) tryFallback(ctx context.Context, sess *session.Session) (Outcome, bool, error) {
	sess.RecordFallback()
	ans := fallback.Answer(sess.Query, sess.Evidence, o.Facts)
	if ans == nil {
		return Outcome{}, false, nil
	}
	out, err := o.finalize(ctx, sess, ans.Answer, ans.EvidenceRefs, true)
	return out, true, err
}

// tryFallbackIfGoodEnough consults the fallback at the loop midpoint and
// uses its answer only if it would score at least medium reliability.
func (o *Orchestrator) tryFallbackIfGoodEnough(ctx context.Context, sess *session.Session) (Outcome, bool, error) {
	sess.RecordFallback()
	ans := fallback.Answer(sess.Query, sess.Evidence, o.Facts)
	if ans == nil {
		return Outcome{}, false, nil
	}

	check := o.checkReality(ctx, ans.Answer, ans.EvidenceRefs, sess)
	score := reliability.Score(reliability.Input{
		AnswerText:   ans.Answer,
		EvidenceRefs: ans.EvidenceRefs,
		Check:        check,
		RetryCount:   sess.RetryCount(),
		FromFallback: true,
	})
	if o.Thresholds.LabelFor(score) == reliability.LabelVeryLow || o.Thresholds.LabelFor(score) == reliability.LabelLow {
		return Outcome{}, false, nil
	}

	action := o.recipeActionFor(sess, ans.Answer, score)

	rec := presenter.Build(presenter.Input{
		Summary:      ans.Answer,
		Details:      ans.Reasoning,
		Reliability:  score,
		Label:        o.Thresholds.LabelFor(score),
		EvidenceRefs: ans.EvidenceRefs,
	})
	sess.Finish()
	return Outcome{Record: rec, UsedFallback: true, Reality: check, RecipeAction: action}, true, nil
}

// consultFallbackOrGiveUp is reached when the thinker call failed for the
// second time in the session or the iteration budget ran out: ask the fallback once more,
// and if it also declines, emit a very_low-reliability "could not
// conclude" answer.
func (o *Orchestrator) consultFallbackOrGiveUp(ctx context.Context, sess *session.Session, reason string) (Outcome, error) {
	sess.RecordFallback()
	ans := fallback.Answer(sess.Query, sess.Evidence, o.Facts)
	if ans != nil {
		return o.finalize(ctx, sess, ans.Answer, ans.EvidenceRefs, true)
	}

	text := fmt.Sprintf("I was not able to reach a confident conclusion (%s).", reason)
	rec := presenter.Build(presenter.Input{
		Summary:     text,
		Reliability: 0,
		Label:       reliability.LabelVeryLow,
	})
	sess.Finish()
	return Outcome{Record: rec}, nil
}

func (o *Orchestrator) checkReality(ctx context.Context, answer string, refs []string, sess *session.Session) reality.Result {
	engine := reality.NewEngine(false)
	return engine.Check(ctx, answer, refs, sess.Evidence.Iter(), o.History)
}

// finalize runs the reality-check, scores reliability, and assembles the
// presenter record for a produced answer.
func (o *Orchestrator) finalize(ctx context.Context, sess *session.Session, answer string, refs []string, fromFallback bool) (Outcome, error) {
	check := o.checkReality(ctx, answer, refs, sess)
	score := reliability.Score(reliability.Input{
		AnswerText:         answer,
		EvidenceRefs:       refs,
		Check:              check,
		RetryCount:         sess.RetryCount(),
		FromFallback:       fromFallback,
		RanOutOfIterations: sess.Iteration() >= sess.MaxIteration(),
	})
	label := o.Thresholds.LabelFor(score)

	var nextSteps []string
	recommendedAction := reality.RecommendedAction(check, o.VerifiedThreshold)
	if recommendedAction == reality.ActionRequestClarification || recommendedAction == reality.ActionAbort {
		for _, d := range check.Discrepancies {
			nextSteps = append(nextSteps, fmt.Sprintf("%s: %s", d.Signal, d.Description))
		}
	}

	recipeAction := o.recipeActionFor(sess, answer, score)

	rec := presenter.Build(presenter.Input{
		Summary:      answer,
		Reliability:  score,
		Label:        label,
		EvidenceRefs: refs,
		NextSteps:    nextSteps,
	})
	sess.Finish()
	return Outcome{Record: rec, UsedFallback: fromFallback, Reality: check, RecipeAction: recipeAction}, nil
}

// recipeActionFor applies the recipe lifecycle described for §4.9: reusing
// a matched recipe bumps its confidence, a matched recipe whose outcome
// this session scored poorly is downgraded as a mismatch, and a
// from-scratch session that scored well enough is distilled into a new
// recipe (draft below the create threshold, confirmed at or above it).
func (o *Orchestrator) recipeActionFor(sess *session.Session, answer string, score float64) memory.RecipeAction {
	if o.Recipes == nil {
		return memory.RecipeAction{Kind: memory.RecipeActionNone}
	}

	if sess.MatchedRecipeID != "" {
		if score >= memory.RecipeDraftFloor {
			if r, err := o.Recipes.RecordReuse(sess.MatchedRecipeID); err == nil {
				return memory.RecipeAction{Kind: memory.RecipeActionReused, RecipeID: r.RecipeID}
			}
		} else if r, err := o.Recipes.RecordMismatch(sess.MatchedRecipeID); err == nil {
			return memory.RecipeAction{Kind: memory.RecipeActionUpdated, RecipeID: r.RecipeID}
		}
		return memory.RecipeAction{Kind: memory.RecipeActionNone}
	}

	if score < memory.RecipeDraftFloor {
		return memory.RecipeAction{Kind: memory.RecipeActionNone}
	}
	steps := probeStepsFromEvidence(sess)
	if len(steps) == 0 {
		return memory.RecipeAction{Kind: memory.RecipeActionNone}
	}

	draft := score < memory.RecipeCreateThreshold
	r, err := o.Recipes.Create(recipeName(sess.Query), answer, recipeKeywords(sess.Query), steps, draft)
	if err != nil {
		return memory.RecipeAction{Kind: memory.RecipeActionNone}
	}
	kind := memory.RecipeActionCreated
	if draft {
		kind = memory.RecipeActionDraft
	}
	return memory.RecipeAction{Kind: kind, RecipeID: r.RecipeID}
}

// probeStepsFromEvidence distills the real catalog probes a session ran
// (as opposed to its synthetic evidence) into a replayable recipe plan.
func probeStepsFromEvidence(sess *session.Session) []memory.Step {
	var steps []memory.Step
	seen := make(map[string]bool)
	for _, e := range sess.Evidence.Iter() {
		if evidence.IsSyntheticSource(evidence.Source(e.Source)) || seen[e.Source] {
			continue
		}
		seen[e.Source] = true
		steps = append(steps, memory.Step{ToolID: e.Source})
	}
	return steps
}

func recipeName(query string) string {
	name := strings.TrimSpace(query)
	if len(name) > 60 {
		name = name[:60]
	}
	return name
}

func recipeKeywords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "?.,!")
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}
