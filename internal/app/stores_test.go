package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"quiz-engine/internal/domain"
)

type memDocs struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   map[string]int
	failErr error
}

func newMemDocs() *memDocs {
	return &memDocs{data: make(map[string][]byte), saves: make(map[string]int)}
}

func (m *memDocs) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[name]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return raw, nil
}

func (m *memDocs) Save(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.data[name] = append([]byte(nil), data...)
	m.saves[name]++
	return nil
}

func fixedNow() func() time.Time {
	t := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func steppingNow() func() time.Time {
	t := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestProgressDefaultsOnFirstRun(t *testing.T) {
	store := NewProgressStoreWithClock(context.Background(), newMemDocs(), fixedNow())
	p := store.Progress()
	if p.PlayerName != "Player" || p.TotalScore != 0 || len(p.QuizResults) != 0 {
		t.Fatalf("unexpected defaults %+v", p)
	}
}

func TestProgressRoundTrip(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocs()
	store := NewProgressStoreWithClock(ctx, docs, fixedNow())

	if err := store.RecordQuizResult("biology", 40, 60); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.RecordQuizResult("planets", 25, 40); err != nil {
		t.Fatalf("record: %v", err)
	}

	reloaded := NewProgressStoreWithClock(ctx, docs, fixedNow()).Progress()
	original := store.Progress()
	if reloaded.TotalScore != 65 || reloaded.TotalScore != original.TotalScore {
		t.Fatalf("expected total 65, got %d", reloaded.TotalScore)
	}
	if len(reloaded.QuizResults) != 2 {
		t.Fatalf("expected 2 results, got %d", len(reloaded.QuizResults))
	}
	for id, want := range original.QuizResults {
		got := reloaded.QuizResults[id]
		if got.Score != want.Score || got.MaxScore != want.MaxScore || !got.Completed || !got.CompletedAt.Equal(want.CompletedAt) {
			t.Fatalf("result %s: expected %+v, got %+v", id, want, got)
		}
	}
	if reloaded.QuizzesCompleted != 2 {
		t.Fatalf("expected 2 completions, got %d", reloaded.QuizzesCompleted)
	}
}

func TestProgressRepeatCompletionOverwritesButAccumulates(t *testing.T) {
	store := NewProgressStoreWithClock(context.Background(), newMemDocs(), fixedNow())
	_ = store.RecordQuizResult("quiz", 30, 40)
	_ = store.RecordQuizResult("quiz", 10, 40)

	res, ok := store.QuizResult("quiz")
	if !ok || res.Score != 10 {
		t.Fatalf("expected latest score 10, got %+v", res)
	}
	if total := store.Progress().TotalScore; total != 40 {
		t.Fatalf("expected running total 40, got %d", total)
	}
}

func TestProgressSaveFailureKeepsMemory(t *testing.T) {
	docs := newMemDocs()
	docs.failErr = errors.New("read-only filesystem")
	store := NewProgressStoreWithClock(context.Background(), docs, fixedNow())

	err := store.RecordQuizResult("quiz", 15, 20)
	if !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Fatalf("expected ErrPersistenceUnavailable, got %v", err)
	}
	if store.Progress().TotalScore != 15 {
		t.Fatalf("in-memory state should survive a failed save")
	}
}

func TestProgressMalformedAndLegacyDocuments(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocs()
	docs.data[ProgressDocument] = []byte("{not json")
	if p := NewProgressStoreWithClock(ctx, docs, fixedNow()).Progress(); p.PlayerName != "Player" {
		t.Fatalf("malformed document should fall back to defaults, got %+v", p)
	}

	docs.data[ProgressDocument] = []byte(`{"playerName":"Ada","quizResults":{"a":{"score":5,"maxScore":20,"completed":true}},"totalScore":5}`)
	p := NewProgressStoreWithClock(ctx, docs, fixedNow()).Progress()
	if p.PlayerName != "Ada" || p.QuizzesCompleted != 1 || p.ModelCompletion == nil {
		t.Fatalf("legacy document not defaulted, got %+v", p)
	}

	docs.data[ProgressDocument] = []byte(`{"playerName":"Ada","modelCompletion":{"heart":1.5}}`)
	if p := NewProgressStoreWithClock(ctx, docs, fixedNow()).Progress(); p.PlayerName != "Player" {
		t.Fatalf("out-of-range fraction should fail validation, got %+v", p)
	}
}

func TestProgressModelCompletionAndReset(t *testing.T) {
	store := NewProgressStoreWithClock(context.Background(), newMemDocs(), fixedNow())
	_ = store.RecordModelCompletion("heart", 1.7)
	_ = store.SetPlayerName("Grace")
	p := store.Progress()
	if p.ModelCompletion["heart"] != 1 || p.PlayerName != "Grace" {
		t.Fatalf("unexpected progress %+v", p)
	}

	p.ModelCompletion["heart"] = 0
	if store.Progress().ModelCompletion["heart"] != 1 {
		t.Fatalf("snapshot mutation leaked into the store")
	}

	if err := store.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if p := store.Progress(); p.PlayerName != "Player" || len(p.ModelCompletion) != 0 {
		t.Fatalf("reset did not restore defaults: %+v", p)
	}
}

func TestProgressRejectsNonFiniteCompletion(t *testing.T) {
	docs := newMemDocs()
	store := NewProgressStoreWithClock(context.Background(), docs, fixedNow())

	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := store.RecordModelCompletion("heart", f); err == nil {
			t.Fatalf("expected %v to be rejected", f)
		}
	}
	if _, ok := store.Progress().ModelCompletion["heart"]; ok {
		t.Fatalf("rejected fraction was stored")
	}

	if err := store.RecordQuizResult("biology", 10, 40); err != nil {
		t.Fatalf("record after rejected fraction: %v", err)
	}
	if docs.saves[ProgressDocument] != 1 {
		t.Fatalf("expected one save, got %d", docs.saves[ProgressDocument])
	}
	var saved progressDocument
	if err := json.Unmarshal(docs.data[ProgressDocument], &saved); err != nil {
		t.Fatalf("saved progress does not decode: %v", err)
	}
}

func TestStoresConcurrentMutation(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocs()
	progress := NewProgressStoreWithClock(ctx, docs, steppingNow())
	board := NewLeaderboardStoreWithClock(ctx, docs, DefaultLeaderboardSize, steppingNow())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := progress.RecordQuizResult(fmt.Sprintf("quiz-%d", i), i, 100); err != nil {
				t.Errorf("record %d: %v", i, err)
			}
			if err := board.AddScore("p", i); err != nil {
				t.Errorf("add %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	p := progress.Progress()
	if p.QuizzesCompleted != n || len(p.QuizResults) != n {
		t.Fatalf("expected %d completions, got %d (%d results)", n, p.QuizzesCompleted, len(p.QuizResults))
	}
	if want := n * (n - 1) / 2; p.TotalScore != want {
		t.Fatalf("expected total %d, got %d", want, p.TotalScore)
	}
	entries := board.Entries()
	if len(entries) != DefaultLeaderboardSize {
		t.Fatalf("expected %d entries, got %d", DefaultLeaderboardSize, len(entries))
	}
	for i, e := range entries {
		if e.Score != n-1-i {
			t.Fatalf("position %d: expected %d, got %d", i, n-1-i, e.Score)
		}
	}
}

func TestLeaderboardKeepsTopTen(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocs()
	board := NewLeaderboardStoreWithClock(ctx, docs, DefaultLeaderboardSize, steppingNow())

	for _, score := range []int{50, 80, 30, 90, 10, 70, 60, 40, 20, 100, 5} {
		if err := board.AddScore("p", score); err != nil {
			t.Fatalf("add %d: %v", score, err)
		}
	}

	want := []int{100, 90, 80, 70, 60, 50, 40, 30, 20, 10}
	check := func(entries []domain.LeaderboardEntry) {
		t.Helper()
		if len(entries) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(entries))
		}
		for i, e := range entries {
			if e.Score != want[i] {
				t.Fatalf("position %d: expected %d, got %d", i, want[i], e.Score)
			}
		}
	}
	check(board.Entries())
	check(NewLeaderboardStoreWithClock(ctx, docs, DefaultLeaderboardSize, steppingNow()).Entries())
}

func TestLeaderboardTiesKeepInsertionOrder(t *testing.T) {
	board := NewLeaderboardStoreWithClock(context.Background(), newMemDocs(), 3, steppingNow())
	_ = board.AddScore("first", 50)
	_ = board.AddScore("second", 50)
	_ = board.AddScore("third", 70)
	_ = board.AddScore("fourth", 50)

	entries := board.Entries()
	names := []string{entries[0].PlayerName, entries[1].PlayerName, entries[2].PlayerName}
	if names[0] != "third" || names[1] != "first" || names[2] != "second" {
		t.Fatalf("unexpected order %v", names)
	}
}

func TestLeaderboardNormalizesLoadedDocument(t *testing.T) {
	docs := newMemDocs()
	raw, _ := json.Marshal(leaderboardDocument{Entries: []domain.LeaderboardEntry{
		{PlayerName: "a", Score: 1}, {PlayerName: "b", Score: 9}, {PlayerName: "c", Score: 5},
	}})
	docs.data[LeaderboardDocument] = raw

	entries := NewLeaderboardStoreWithClock(context.Background(), docs, 2, fixedNow()).Entries()
	if len(entries) != 2 || entries[0].Score != 9 || entries[1].Score != 5 {
		t.Fatalf("expected [9 5], got %+v", entries)
	}
}

func TestAchievementUnlockIsIdempotent(t *testing.T) {
	docs := newMemDocs()
	store := NewAchievementStoreWithClock(context.Background(), docs, DefaultAchievements(), steppingNow())

	unlocked, err := store.Evaluate(domain.ConditionScore, 100, "")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(unlocked) != 1 || unlocked[0].ID != "score_100" {
		t.Fatalf("expected score_100 only, got %+v", unlocked)
	}
	first, _ := store.Get("score_100")

	again, err := store.Evaluate(domain.ConditionScore, 100, "")
	if err != nil || len(again) != 0 {
		t.Fatalf("second evaluation should unlock nothing, got %+v %v", again, err)
	}
	second, _ := store.Get("score_100")
	if !second.UnlockedAt.Equal(first.UnlockedAt) {
		t.Fatalf("unlock timestamp changed from %v to %v", first.UnlockedAt, second.UnlockedAt)
	}
	if docs.saves[AchievementsDocument] != 1 {
		t.Fatalf("expected one persist, got %d", docs.saves[AchievementsDocument])
	}
}

func TestAchievementKinds(t *testing.T) {
	store := NewAchievementStoreWithClock(context.Background(), newMemDocs(), DefaultAchievements(), fixedNow())

	if got, _ := store.Evaluate(domain.ConditionTopicScore, 150, "planets"); len(got) != 1 || got[0].ID != "planets_100" {
		t.Fatalf("expected planets_100, got %+v", got)
	}
	if store.IsUnlocked("biology_100") {
		t.Fatalf("biology_100 must need the biology topic")
	}
	if got, _ := store.Evaluate(domain.ConditionTime, 121, ""); len(got) != 0 {
		t.Fatalf("slow quiz must not unlock fast_quiz")
	}
	if got, _ := store.Evaluate(domain.ConditionTime, 95, ""); len(got) != 1 || got[0].ID != "fast_quiz" {
		t.Fatalf("expected fast_quiz, got %+v", got)
	}
	if got, _ := store.Evaluate(domain.ConditionCompletion, 10, ""); len(got) != 2 {
		t.Fatalf("expected complete_5 and complete_10, got %+v", got)
	}
	if store.IsUnlocked("complete_all") || store.IsUnlocked("score_100") {
		t.Fatalf("unexpected unlocks")
	}
	if len(store.Unlocked())+len(store.Locked()) != len(store.All()) {
		t.Fatalf("unlocked and locked must partition the catalog")
	}
}

func TestAchievementReconcileOnLoad(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocs()
	docs.data[AchievementsDocument] = []byte(`{"achievements":[
		{"id":"score_100","isUnlocked":true,"unlockedDate":"2024-02-03T04:05:06Z"},
		{"id":"retired_badge","isUnlocked":true},
		{"id":"complete_5","isUnlocked":false}
	]}`)

	store := NewAchievementStoreWithClock(ctx, docs, DefaultAchievements(), fixedNow())
	all := store.All()
	if len(all) != len(DefaultAchievements()) {
		t.Fatalf("catalog size changed to %d", len(all))
	}
	a, _ := store.Get("score_100")
	if !a.Unlocked || a.UnlockedAt.Year() != 2024 || a.Title != "First Steps" {
		t.Fatalf("unlock state not restored: %+v", a)
	}
	if _, ok := store.Get("retired_badge"); ok {
		t.Fatalf("unknown ids must be ignored")
	}
}

func TestAchievementSaveFailureKeepsUnlock(t *testing.T) {
	docs := newMemDocs()
	docs.failErr = errors.New("disk full")
	store := NewAchievementStoreWithClock(context.Background(), docs, DefaultAchievements(), fixedNow())

	unlocked, err := store.Evaluate(domain.ConditionScore, 500, "")
	if !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Fatalf("expected ErrPersistenceUnavailable, got %v", err)
	}
	if len(unlocked) != 2 || !store.IsUnlocked("score_500") {
		t.Fatalf("unlocks must survive a failed save")
	}
}
