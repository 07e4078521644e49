package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const recentIDCap = 100

// index is the searchable companion to sessions.jsonl: recency, counters,
// and a simple keyword → ids map.
type index struct {
	SchemaVersion        int                 `json:"schema_version"`
	TotalSessions        int                 `json:"total_sessions"`
	SuccessfulSessions   int                 `json:"successful_sessions"`
	SessionsWithRecipes  int                 `json:"sessions_with_recipes"`
	ArchivedCount        int                 `json:"archived_count"`
	LastSessionAt        *time.Time          `json:"last_session_at,omitempty"`
	RecentSessionIDs     []string            `json:"recent_session_ids"`
	KeywordIndex         map[string][]string `json:"keyword_index"`
}

func newIndex() index {
	return index{SchemaVersion: schemaVersion, KeywordIndex: make(map[string][]string)}
}

// Store is the session-record store: an append-only JSONL log, an index
// for fast lookups, and an archive directory for forgotten records.
// Writes are single-writer, matching the single-goroutine write
// discipline used elsewhere in this codebase.
type Store struct {
	mu         sync.Mutex
	dir        string
	seq        int
	idx        index
}

// NewStore opens (or initializes) the memory store rooted at
// <stateDir>/memory.
func NewStore(stateDir string) (*Store, error) {
	dir := filepath.Join(stateDir, "memory")
	if err := os.MkdirAll(filepath.Join(dir, "archive"), 0o755); err != nil {
		return nil, fmt.Errorf("memory: create dirs: %w", err)
	}
	s := &Store{dir: dir, idx: newIndex()}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	if err := s.recoverSeq(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) sessionsPath() string { return filepath.Join(s.dir, "sessions.jsonl") }
func (s *Store) indexPath() string    { return filepath.Join(s.dir, "memory_index.json") }

// recoverSeq scans sessions.jsonl and the archive directory once at
// startup so NextID never repeats across restarts, even for archived
// records or a stale index.
func (s *Store) recoverSeq() error {
	recs, err := s.readAll()
	if err != nil {
		return err
	}
	max := 0
	for _, r := range recs {
		var n int
		if _, err := fmt.Sscanf(r.MemoryID, "MEM%d", &n); err == nil && n > max {
			max = n
		}
	}
	entries, err := os.ReadDir(filepath.Join(s.dir, "archive"))
	if err != nil {
		return fmt.Errorf("memory: read archive dir: %w", err)
	}
	for _, e := range entries {
		var n int
		if _, err := fmt.Sscanf(e.Name(), "MEM%d.json", &n); err == nil && n > max {
			max = n
		}
	}
	s.seq = max
	return nil
}

// NextID returns the next dense memory id (MEM1, MEM2, ...).
func (s *Store) NextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("MEM%d", s.seq)
}

// Store appends rec to the log and updates the index.
func (s *Store) Store(rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.sessionsPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("memory: open sessions log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("memory: marshal session record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("memory: append session record: %w", err)
	}

	s.idx.TotalSessions++
	ts := rec.Timestamp
	s.idx.LastSessionAt = &ts
	if rec.Success {
		s.idx.SuccessfulSessions++
	}
	if rec.RecipeAction.Kind != RecipeActionNone {
		s.idx.SessionsWithRecipes++
	}
	s.idx.RecentSessionIDs = append([]string{rec.MemoryID}, s.idx.RecentSessionIDs...)
	if len(s.idx.RecentSessionIDs) > recentIDCap {
		s.idx.RecentSessionIDs = s.idx.RecentSessionIDs[:recentIDCap]
	}
	for _, w := range extractKeywords(rec.RequestText) {
		s.idx.KeywordIndex[w] = append(s.idx.KeywordIndex[w], rec.MemoryID)
	}

	return s.saveIndex()
}

// Get returns the session record with the given id, if present.
func (s *Store) Get(id string) (SessionRecord, bool, error) {
	recs, err := s.readAll()
	if err != nil {
		return SessionRecord{}, false, err
	}
	for _, r := range recs {
		if r.MemoryID == id {
			return r, true, nil
		}
	}
	return SessionRecord{}, false, nil
}

// Recent returns up to limit of the most recently stored records.
func (s *Store) Recent(limit int) ([]SessionRecord, error) {
	s.mu.Lock()
	ids := append([]string(nil), s.idx.RecentSessionIDs...)
	s.mu.Unlock()

	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	var out []SessionRecord
	for _, id := range ids {
		rec, ok, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Search ranks session records by keyword overlap with query and returns
// up to limit, highest match count first.
func (s *Store) Search(query string, limit int) ([]SessionRecord, error) {
	s.mu.Lock()
	counts := make(map[string]int)
	for _, w := range extractKeywords(query) {
		for _, id := range s.idx.KeywordIndex[w] {
			counts[id]++
		}
	}
	s.mu.Unlock()

	type scored struct {
		id    string
		count int
	}
	var ranked []scored
	for id, c := range counts {
		ranked = append(ranked, scored{id, c})
	}
	// simple insertion sort by count desc; result sets are small (<=100 recent ids)
	for i := 1; i < len(ranked); i++ {
		j := i
		for j > 0 && ranked[j-1].count < ranked[j].count {
			ranked[j-1], ranked[j] = ranked[j], ranked[j-1]
			j--
		}
	}
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	var out []SessionRecord
	for _, r := range ranked {
		rec, ok, err := s.Get(r.id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SimilarContradictions reports whether answer overlaps the answer summary
// of any session whose critique mentions a contradiction, satisfying
// reality.HistoricalLookup without pkg/reality importing pkg/memory.
func (s *Store) SimilarContradictions(answer string) bool {
	recs, err := s.readAll()
	if err != nil {
		return false
	}
	needle := strings.ToLower(answer)
	for _, r := range recs {
		if r.CritiqueText == "" {
			continue
		}
		c := strings.ToLower(r.CritiqueText)
		if strings.Contains(c, "contradict") && overlaps(needle, strings.ToLower(r.AnswerSummary)) {
			return true
		}
	}
	return false
}

// Archive moves the session identified by id aside into archive/<id>.json
// and removes it from the live log, per the "forget" mutation.
func (s *Store) Archive(id, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.readAll()
	if err != nil {
		return false, err
	}

	var kept []SessionRecord
	var archived *SessionRecord
	for i := range recs {
		if recs[i].MemoryID == id {
			r := recs[i]
			archived = &r
			continue
		}
		kept = append(kept, recs[i])
	}
	if archived == nil {
		return false, nil
	}

	payload := struct {
		Record     SessionRecord `json:"record"`
		ArchivedAt time.Time     `json:"archived_at"`
		Reason     string        `json:"reason"`
	}{Record: *archived, ArchivedAt: time.Now(), Reason: reason}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return false, fmt.Errorf("memory: marshal archive: %w", err)
	}
	archivePath := filepath.Join(s.dir, "archive", id+".json")
	if err := os.WriteFile(archivePath, data, 0o644); err != nil {
		return false, fmt.Errorf("memory: write archive: %w", err)
	}

	if err := s.rewriteLog(kept); err != nil {
		return false, err
	}

	s.idx.TotalSessions--
	if s.idx.TotalSessions < 0 {
		s.idx.TotalSessions = 0
	}
	s.idx.ArchivedCount++
	filtered := s.idx.RecentSessionIDs[:0]
	for _, existing := range s.idx.RecentSessionIDs {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	s.idx.RecentSessionIDs = filtered

	if err := s.saveIndex(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) rewriteLog(recs []SessionRecord) error {
	var b bytes.Buffer
	for _, r := range recs {
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("memory: marshal session record: %w", err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(s.sessionsPath(), b.Bytes(), 0o644); err != nil {
		return fmt.Errorf("memory: rewrite sessions log: %w", err)
	}
	return nil
}

func (s *Store) readAll() ([]SessionRecord, error) {
	data, err := os.ReadFile(s.sessionsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("memory: read sessions log: %w", err)
	}
	var out []SessionRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var r SessionRecord
		if err := dec.Decode(&r); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("memory: decode session record: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("memory: read index: %w", err)
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("memory: parse index: %w", err)
	}
	if idx.KeywordIndex == nil {
		idx.KeywordIndex = make(map[string][]string)
	}
	s.idx = idx
	return nil
}

func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.idx, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: marshal index: %w", err)
	}
	if err := os.WriteFile(s.indexPath(), data, 0o644); err != nil {
		return fmt.Errorf("memory: write index: %w", err)
	}
	return nil
}

// extractKeywords lowercases and splits on non-alphanumeric runs, keeping
// tokens of length >= 3.
func extractKeywords(text string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() >= 3 {
			words = append(words, cur.String())
		}
		cur.Reset()
	}
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return words
}

func overlaps(a, b string) bool {
	for _, w := range extractKeywords(a) {
		if strings.Contains(b, w) {
			return true
		}
	}
	return false
}
