package redisstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/abhisek/docquiz/internal/credits"
	"github.com/abhisek/docquiz/internal/quiz"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestBalanceStore_OpenGet(t *testing.T) {
	_, client := newClient(t)
	s := NewBalanceStore(client)
	ctx := context.Background()

	if _, err := s.Get(ctx, "alice"); !errors.Is(err, credits.ErrUnknownPrincipal) {
		t.Fatalf("Get(unknown) error = %v, want ErrUnknownPrincipal", err)
	}

	created, err := s.Open(ctx, "alice", 20)
	if err != nil || !created {
		t.Fatalf("Open = %v, %v", created, err)
	}
	created, err = s.Open(ctx, "alice", 99)
	if err != nil || created {
		t.Fatalf("second Open = %v, %v; want false, nil", created, err)
	}
	if _, err := s.Open(ctx, "bob", -1); !errors.Is(err, credits.ErrInvalidAmount) {
		t.Fatalf("Open(negative) error = %v", err)
	}

	got, err := s.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 20 {
		t.Errorf("balance = %d, want 20", got)
	}
}

func TestBalanceStore_CompareAndSwap(t *testing.T) {
	mr, client := newClient(t)
	s := NewBalanceStore(client)
	ctx := context.Background()
	s.Open(ctx, "alice", 20)

	ok, err := s.CompareAndSwap(ctx, "alice", 19, 0)
	if err != nil || ok {
		t.Fatalf("stale swap = %v, %v; want false, nil", ok, err)
	}
	ok, err = s.CompareAndSwap(ctx, "alice", 20, 10)
	if err != nil || !ok {
		t.Fatalf("swap = %v, %v; want true, nil", ok, err)
	}
	if v, _ := mr.Get("docquiz:balance:alice"); v != "10" {
		t.Errorf("stored balance = %q, want 10", v)
	}

	if _, err := s.CompareAndSwap(ctx, "nobody", 0, 1); !errors.Is(err, credits.ErrUnknownPrincipal) {
		t.Errorf("swap(unknown) error = %v", err)
	}
}

func TestBalanceStore_LedgerConcurrentReserve(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	// Two ledgers on one Redis stand in for two processes.
	s := NewBalanceStore(client)
	s.Open(ctx, "alice", 30)
	ledgers := []*credits.Ledger{credits.NewLedger(s), credits.NewLedger(NewBalanceStore(client))}

	var wins, denied atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ledgers[i%2].Reserve(ctx, "alice", 10)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, credits.ErrInsufficientCredit):
				denied.Add(1)
			case errors.Is(err, credits.ErrContention):
				// Lost every retry; still no overspend.
			default:
				t.Errorf("Reserve: %v", err)
			}
		}(i)
	}
	wg.Wait()

	bal, err := s.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if bal < 0 {
		t.Fatalf("balance went negative: %d", bal)
	}
	if int64(wins.Load())*10 != 30-bal {
		t.Errorf("wins = %d but balance = %d", wins.Load(), bal)
	}
	if wins.Load() > 3 {
		t.Errorf("wins = %d, want at most 3", wins.Load())
	}
}

type countingLoader struct {
	calls atomic.Int32
	quiz  *quiz.Quiz
	delay time.Duration
}

func (l *countingLoader) GetQuiz(_ context.Context, id string) (*quiz.Quiz, error) {
	l.calls.Add(1)
	time.Sleep(l.delay)
	if l.quiz == nil || id != l.quiz.ID {
		return nil, quiz.ErrQuizNotFound
	}
	cp := *l.quiz
	return &cp, nil
}

func sampleQuiz() *quiz.Quiz {
	return &quiz.Quiz{
		ID:            "quiz-1",
		PrincipalID:   "alice",
		DocumentID:    "doc-1",
		Title:         "Quiz: biology.pdf",
		QuestionCount: 1,
		Questions: []quiz.Question{{
			ID:           1,
			Prompt:       "What is the powerhouse of the cell?",
			Options:      []string{"Nucleus", "Mitochondria", "Ribosome", "Golgi"},
			CorrectIndex: 1,
			Explanation:  "Mitochondria produce ATP.",
		}},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestQuizCache_CachesInRedis(t *testing.T) {
	mr, client := newClient(t)
	loader := &countingLoader{quiz: sampleQuiz()}
	cache := NewQuizCache(client, loader, time.Minute, nil)
	ctx := context.Background()

	first, err := cache.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("loader calls = %d, want 1", loader.calls.Load())
	}
	if !mr.Exists("docquiz:quiz:quiz-1") {
		t.Fatal("quiz not written to redis")
	}
	ttl := mr.TTL("docquiz:quiz:quiz-1")
	if ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Errorf("ttl = %v, want minute plus up to 10%% jitter", ttl)
	}

	second, err := cache.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls = %d", loader.calls.Load())
	}
	if second.Questions[0].CorrectIndex != 1 || second.Title != first.Title {
		t.Errorf("cached quiz differs: %+v", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", second.CreatedAt, first.CreatedAt)
	}
}

func TestQuizCache_CollapsesConcurrentMisses(t *testing.T) {
	_, client := newClient(t)
	loader := &countingLoader{quiz: sampleQuiz(), delay: 50 * time.Millisecond}
	cache := NewQuizCache(client, loader, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetQuiz(context.Background(), "quiz-1"); err != nil {
				t.Errorf("GetQuiz: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := loader.calls.Load(); n != 1 {
		t.Errorf("loader calls = %d, want 1", n)
	}
}

func TestQuizCache_MissPassesThroughNotFound(t *testing.T) {
	mr, client := newClient(t)
	cache := NewQuizCache(client, &countingLoader{quiz: sampleQuiz()}, time.Minute, nil)

	_, err := cache.GetQuiz(context.Background(), "missing")
	if !errors.Is(err, quiz.ErrQuizNotFound) {
		t.Fatalf("error = %v, want ErrQuizNotFound", err)
	}
	if mr.Exists("docquiz:quiz:missing") {
		t.Error("not-found result must not be cached")
	}
}

func TestQuizCache_RedisDownFallsBackToLoader(t *testing.T) {
	mr, client := newClient(t)
	loader := &countingLoader{quiz: sampleQuiz()}
	cache := NewQuizCache(client, loader, time.Minute, nil)
	mr.Close()

	q, err := cache.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if q.ID != "quiz-1" {
		t.Errorf("ID = %q", q.ID)
	}
}

func TestQuizCache_CopiesAreIndependent(t *testing.T) {
	_, client := newClient(t)
	cache := NewQuizCache(client, &countingLoader{quiz: sampleQuiz(), delay: 20 * time.Millisecond}, 0, nil)

	var wg sync.WaitGroup
	results := make([]*quiz.Quiz, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = cache.GetQuiz(context.Background(), "quiz-1")
		}(i)
	}
	wg.Wait()

	if results[0] == nil || results[1] == nil {
		t.Fatal("GetQuiz returned nil")
	}
	results[0].Questions[0].Options[1] = "Chloroplast"
	if results[1].Questions[0].Options[1] != "Mitochondria" {
		t.Error("mutating one result's options leaked into another")
	}
	results[0].Questions[0] = quiz.Question{}
	if results[1].Questions[0].ID != 1 {
		t.Error("mutating one result leaked into another")
	}
}

// gatedLoader blocks until released and fails if its context was canceled.
type gatedLoader struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (l *gatedLoader) GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error) {
	if l.calls.Add(1) == 1 {
		close(l.started)
	}
	<-l.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sampleQuiz(), nil
}

func TestQuizCache_CanceledCallerDoesNotFailOthers(t *testing.T) {
	_, client := newClient(t)
	loader := &gatedLoader{started: make(chan struct{}), release: make(chan struct{})}
	cache := NewQuizCache(client, loader, time.Minute, nil)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.GetQuiz(firstCtx, "quiz-1")
		firstErr <- err
	}()
	<-loader.started

	type result struct {
		q   *quiz.Quiz
		err error
	}
	second := make(chan result, 1)
	go func() {
		q, err := cache.GetQuiz(context.Background(), "quiz-1")
		second <- result{q, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller error = %v, want context.Canceled", err)
	}
	close(loader.release)

	got := <-second
	if got.err != nil {
		t.Fatalf("second caller failed: %v", got.err)
	}
	if got.q.ID != "quiz-1" {
		t.Errorf("ID = %q", got.q.ID)
	}
}
