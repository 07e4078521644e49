// Package fallback implements the deterministic, side-effect-free answer
// path used when the thinker is unavailable, slow, or off-spec. It is the
// only path that must succeed without the thinker.
package fallback

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/annad/pkg/evidence"
	"github.com/codeready-toolchain/annad/pkg/facts"
	"github.com/codeready-toolchain/annad/pkg/memory"
	"github.com/codeready-toolchain/annad/pkg/thinker"
)

// Intent is one enumerated query pattern the fallback recognizes.
type Intent string

const (
	IntentHardware     Intent = "hardware_enquiry"
	IntentPackage      Intent = "package_presence"
	IntentServiceFailed Intent = "service_status"
	IntentDiskUsage    Intent = "disk_usage"
	IntentNetworkUp    Intent = "network_up"
	IntentRecentErrors Intent = "recent_boot_health"

	// The five introspection intents route memory/recipe questions
	// through the same query pipeline as any other question, rather
	// than through bespoke IPC methods. IntentForgetMemory is the only
	// one of the five that mutates; it is staged through the safety
	// gate instead of answered directly.
	IntentMemoryLearned Intent = "memory_learned"
	IntentListRecipes   Intent = "list_recipes"
	IntentShowRecipe    Intent = "show_recipe"
	IntentSearchMemory  Intent = "search_memory"
	IntentForgetMemory  Intent = "forget_memory"
)

// MatchIntent classifies the query text into one of the enumerated
// intents, or returns ok=false if nothing matches. The introspection
// intents are checked first since their trigger phrases ("forget about
// the disk issue", "search memory for ping") can otherwise overlap with
// the hardware/disk/network keywords below.
func MatchIntent(query string) (Intent, bool) {
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "forget"):
		return IntentForgetMemory, true
	case strings.Contains(lower, "recipe for") || strings.Contains(lower, "show recipe"):
		return IntentShowRecipe, true
	case strings.Contains(lower, "list recipes") || strings.Contains(lower, "what recipes") || strings.Contains(lower, "recipes do you know"):
		return IntentListRecipes, true
	case strings.Contains(lower, "search memory"):
		return IntentSearchMemory, true
	case strings.Contains(lower, "what have you learned") || strings.Contains(lower, "what do you know"):
		return IntentMemoryLearned, true
	case containsAny(lower, "ram", "memory", "cpu", "processor", "gpu", "graphics", "kernel version"):
		return IntentHardware, true
	case strings.Contains(lower, "installed"):
		return IntentPackage, true
	case containsAny(lower, "service", "systemd", "unit", "failed"):
		return IntentServiceFailed, true
	case containsAny(lower, "disk", "storage", "space"):
		return IntentDiskUsage, true
	case containsAny(lower, "network", "internet", "ping", "online"):
		return IntentNetworkUp, true
	case containsAny(lower, "boot", "recent error", "what happened"):
		return IntentRecentErrors, true
	}
	return "", false
}

// IntrospectionTarget extracts the free-text target from an introspection
// query, e.g. "forget about the GPU issue" -> "the GPU issue", "show
// recipe for restarting NetworkManager" -> "restarting NetworkManager".
// It falls back to the trimmed query itself when no marker phrase is
// found.
func IntrospectionTarget(query string) string {
	lower := strings.ToLower(query)
	markers := []string{"forget about", "forget", "recipe for", "search memory for", "search memory"}
	for _, marker := range markers {
		if idx := strings.Index(lower, marker); idx >= 0 {
			return strings.TrimSpace(query[idx+len(marker):])
		}
	}
	return strings.TrimSpace(query)
}

// AnswerIntrospection answers the four non-mutating introspection intents
// directly from the memory and recipe stores, bypassing catalog evidence
// entirely. It returns ok=false for IntentForgetMemory (a mutation, staged
// through the safety gate by the caller) or any non-introspection intent.
func AnswerIntrospection(query string, intent Intent, mem *memory.Store, recipes *memory.RecipeStore) (*thinker.FinalAnswer, bool) {
	target := IntrospectionTarget(query)
	switch intent {
	case IntentMemoryLearned:
		return memoryLearnedAnswer(mem), true
	case IntentListRecipes:
		return listRecipesAnswer(recipes), true
	case IntentShowRecipe:
		return showRecipeAnswer(recipes, target), true
	case IntentSearchMemory:
		return searchMemoryAnswer(mem, target), true
	}
	return nil, false
}

func memoryLearnedAnswer(mem *memory.Store) *thinker.FinalAnswer {
	if mem == nil {
		return &thinker.FinalAnswer{Answer: "I do not have a memory store available right now."}
	}
	recs, err := mem.Recent(5)
	if err != nil || len(recs) == 0 {
		return &thinker.FinalAnswer{
			Answer:    "I have not recorded any sessions yet.",
			Reasoning: "read from the session memory store",
		}
	}
	var parts []string
	for _, r := range recs {
		parts = append(parts, fmt.Sprintf("%q -> %s", r.RequestText, r.AnswerSummary))
	}
	return &thinker.FinalAnswer{
		Answer:    "recently I have learned:\n" + strings.Join(parts, "\n"),
		Reasoning: "read from the session memory store",
	}
}

func listRecipesAnswer(recipes *memory.RecipeStore) *thinker.FinalAnswer {
	if recipes == nil {
		return &thinker.FinalAnswer{Answer: "I do not have a recipe store available right now."}
	}
	list := recipes.List(10)
	if len(list) == 0 {
		return &thinker.FinalAnswer{
			Answer:    "I do not have any recipes yet.",
			Reasoning: "read from the recipe store",
		}
	}
	var parts []string
	for _, r := range list {
		status := "confirmed"
		if r.Draft {
			status = "draft"
		}
		parts = append(parts, fmt.Sprintf("%s (%s, confidence %.2f, %s)", r.Name, r.RecipeID, r.Confidence, status))
	}
	return &thinker.FinalAnswer{
		Answer:    "recipes I know:\n" + strings.Join(parts, "\n"),
		Reasoning: "read from the recipe store",
	}
}

func showRecipeAnswer(recipes *memory.RecipeStore, target string) *thinker.FinalAnswer {
	if recipes == nil {
		return &thinker.FinalAnswer{Answer: "I do not have a recipe store available right now."}
	}
	if target == "" {
		return &thinker.FinalAnswer{Answer: "which recipe did you want to see?"}
	}
	r, ok := recipes.FindByIntent(target)
	if !ok {
		return &thinker.FinalAnswer{
			Answer:    fmt.Sprintf("I do not have a recipe matching %q.", target),
			Reasoning: "read from the recipe store",
		}
	}
	var steps []string
	for _, s := range r.Steps {
		steps = append(steps, fmt.Sprintf("%s %v", s.ToolID, s.Args))
	}
	return &thinker.FinalAnswer{
		Answer:    fmt.Sprintf("%s: %s\nsteps:\n%s", r.Name, r.Description, strings.Join(steps, "\n")),
		Reasoning: "read from the recipe store",
	}
}

func searchMemoryAnswer(mem *memory.Store, target string) *thinker.FinalAnswer {
	if mem == nil {
		return &thinker.FinalAnswer{Answer: "I do not have a memory store available right now."}
	}
	if target == "" {
		return &thinker.FinalAnswer{Answer: "what should I search memory for?"}
	}
	recs, err := mem.Search(target, 5)
	if err != nil || len(recs) == 0 {
		return &thinker.FinalAnswer{
			Answer:    fmt.Sprintf("I found nothing in memory matching %q.", target),
			Reasoning: "searched the session memory store",
		}
	}
	var parts []string
	for _, r := range recs {
		parts = append(parts, fmt.Sprintf("%q -> %s", r.RequestText, r.AnswerSummary))
	}
	return &thinker.FinalAnswer{
		Answer:    fmt.Sprintf("matches for %q:\n%s", target, strings.Join(parts, "\n")),
		Reasoning: "searched the session memory store",
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Answer attempts the deterministic fallback for the given query against
// the session's evidence and the learned-fact cache. It returns nil if no
// intent matched or the matched intent's expected evidence is absent; it
// never guesses a missing fact. Every returned answer cites the evidence
// ids it used.
func Answer(query string, ev *evidence.Store, fc *facts.Cache) *thinker.FinalAnswer {
	intent, ok := MatchIntent(query)
	if !ok {
		return nil
	}

	switch intent {
	case IntentHardware:
		return hardwareAnswer(query, ev, fc)
	case IntentPackage:
		return packageAnswer(query, ev, fc)
	case IntentServiceFailed:
		return serviceAnswer(ev)
	case IntentDiskUsage:
		return diskAnswer(ev, fc)
	case IntentNetworkUp:
		return networkAnswer(ev)
	case IntentRecentErrors:
		return recentErrorsAnswer(ev)
	}
	return nil
}

func hardwareAnswer(query string, ev *evidence.Store, fc *facts.Cache) *thinker.FinalAnswer {
	var categories []string
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "ram") || strings.Contains(lower, "memory"):
		categories = []string{"total_ram"}
	case strings.Contains(lower, "cpu") || strings.Contains(lower, "processor"):
		categories = []string{"cpu_model", "cpu_cores"}
	case strings.Contains(lower, "gpu") || strings.Contains(lower, "graphics"):
		categories = []string{"gpu_model"}
	case strings.Contains(lower, "kernel"):
		categories = []string{"kernel_version"}
	default:
		return nil
	}

	var parts []string
	var refs []string
	for _, cat := range categories {
		fact, ok := fc.Get(cat)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", cat, fact.Value))
		refs = append(refs, factEvidenceRef(ev, cat))
	}
	if len(parts) == 0 {
		return nil
	}
	return &thinker.FinalAnswer{
		Answer:       strings.Join(parts, "; "),
		EvidenceRefs: refs,
		Reasoning:    "answered from the learned-fact cache without invoking the thinker",
	}
}

func packageAnswer(query string, ev *evidence.Store, fc *facts.Cache) *thinker.FinalAnswer {
	cat, ok := facts.MatchPackageCategory(query)
	if !ok {
		return nil
	}
	fact, ok := fc.Get(cat)
	if !ok {
		return nil
	}
	return &thinker.FinalAnswer{
		Answer:       fmt.Sprintf("yes, %s is installed (%s)", strings.TrimPrefix(cat, "package:"), fact.Value),
		EvidenceRefs: []string{factEvidenceRef(ev, cat)},
		Reasoning:    "answered from the learned-fact cache without invoking the thinker",
	}
}

func serviceAnswer(ev *evidence.Store) *thinker.FinalAnswer {
	id, content, ok := findBySource(ev, "svc.failed")
	if !ok {
		return nil
	}
	if strings.TrimSpace(content) == "" || strings.Contains(content, "0 loaded units listed") {
		return &thinker.FinalAnswer{
			Answer:       "no systemd units are currently in a failed state",
			EvidenceRefs: []string{id},
			Reasoning:    "deterministic fallback read of svc.failed evidence",
		}
	}
	return &thinker.FinalAnswer{
		Answer:       "some systemd units are in a failed state: " + firstLine(content),
		EvidenceRefs: []string{id},
		Reasoning:    "deterministic fallback read of svc.failed evidence",
	}
}

func diskAnswer(ev *evidence.Store, fc *facts.Cache) *thinker.FinalAnswer {
	if fact, ok := fc.Get("disk_usage_root"); ok {
		return &thinker.FinalAnswer{
			Answer:       "root filesystem: " + fact.Value,
			EvidenceRefs: []string{factEvidenceRef(ev, "disk_usage_root")},
			Reasoning:    "answered from the learned-fact cache without invoking the thinker",
		}
	}
	id, content, ok := findBySource(ev, "disk.df")
	if !ok {
		return nil
	}
	return &thinker.FinalAnswer{
		Answer:       "disk usage:\n" + content,
		EvidenceRefs: []string{id},
		Reasoning:    "deterministic fallback read of disk.df evidence",
	}
}

func networkAnswer(ev *evidence.Store) *thinker.FinalAnswer {
	id, content, ok := findBySource(ev, "net.ping")
	if !ok {
		return nil
	}
	if strings.Contains(content, "1 received") || strings.Contains(content, "1 packets received") {
		return &thinker.FinalAnswer{
			Answer:       "network connectivity looks up: the ping probe succeeded",
			EvidenceRefs: []string{id},
			Reasoning:    "deterministic fallback read of net.ping evidence",
		}
	}
	return &thinker.FinalAnswer{
		Answer:       "network connectivity looks down: the ping probe did not receive a reply",
		EvidenceRefs: []string{id},
		Reasoning:    "deterministic fallback read of net.ping evidence",
	}
}

func recentErrorsAnswer(ev *evidence.Store) *thinker.FinalAnswer {
	id, content, ok := findBySource(ev, "log.err")
	if !ok {
		return nil
	}
	if strings.TrimSpace(content) == "" {
		return &thinker.FinalAnswer{
			Answer:       "no recent error-level log entries were found",
			EvidenceRefs: []string{id},
			Reasoning:    "deterministic fallback read of log.err evidence",
		}
	}
	return &thinker.FinalAnswer{
		Answer:       "recent error-level log entries:\n" + content,
		EvidenceRefs: []string{id},
		Reasoning:    "deterministic fallback read of log.err evidence",
	}
}

func findBySource(ev *evidence.Store, source string) (id, content string, ok bool) {
	for _, e := range ev.Iter() {
		if e.Source == source {
			id, content, ok = e.ID, e.Content, true
		}
	}
	return
}

func factEvidenceRef(ev *evidence.Store, category string) string {
	for _, e := range ev.Iter() {
		if e.Source == "learned_fact" && strings.Contains(e.Description, category) {
			return e.ID
		}
	}
	return ""
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
