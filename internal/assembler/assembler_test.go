package assembler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/abhisek/docquiz/internal/credits"
	"github.com/abhisek/docquiz/internal/llm"
	"github.com/abhisek/docquiz/internal/metrics"
	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/quizgen"
)

const (
	alice = "alice"
	bob   = "bob"
	docID = "doc-1"
)

type fakeDocuments struct{}

func (fakeDocuments) GetDocument(_ context.Context, principal, id string) (*quiz.Document, error) {
	if principal != alice || id != docID {
		return nil, quiz.ErrDocumentNotFound
	}
	return &quiz.Document{ID: docID, PrincipalID: alice, Name: "biology.pdf", Text: "Cells are the basic unit of life."}, nil
}

type fakeQuizzes struct {
	mu    sync.Mutex
	saved []*quiz.Quiz
	err   error
}

func (f *fakeQuizzes) SaveQuiz(_ context.Context, q *quiz.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, q)
	return nil
}

func (f *fakeQuizzes) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type harness struct {
	asm      *Assembler
	ledger   *credits.Ledger
	provider *llm.MockProvider
	quizzes  *fakeQuizzes
	metrics  *metrics.Metrics
}

func newHarness(t *testing.T, balance int64, cfg Config, responses ...llm.MockResponse) *harness {
	t.Helper()
	store := credits.NewMemoryStore()
	store.Open(alice, balance)
	store.Open(bob, balance)

	h := &harness{
		ledger:   credits.NewLedger(store),
		provider: llm.NewMockProvider(responses...),
		quizzes:  &fakeQuizzes{},
		metrics:  metrics.New(),
	}
	h.asm = New(cfg, Deps{
		Ledger:    h.ledger,
		Generator: quizgen.New(h.provider, quizgen.DefaultConfig()),
		Documents: fakeDocuments{},
		Quizzes:   h.quizzes,
		Metrics:   h.metrics,
	})
	return h
}

func (h *harness) balance(t *testing.T, principal string) int64 {
	t.Helper()
	b, err := h.ledger.Balance(context.Background(), principal)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

func questionSetJSON(n int) string {
	type item struct {
		ID          int      `json:"id"`
		Question    string   `json:"question"`
		Options     []string `json:"options"`
		Correct     int      `json:"correct_answer"`
		Explanation string   `json:"explanation"`
	}
	items := make([]item, n)
	for i := range items {
		items[i] = item{
			ID:          i + 1,
			Question:    fmt.Sprintf("What is fact %d?", i+1),
			Options:     []string{"w", "x", "y", "z"},
			Correct:     (i + 2) % 4,
			Explanation: "Stated in the text.",
		}
	}
	b, _ := json.Marshal(map[string]any{"questions": items})
	return string(b)
}

func request(count int) Request {
	return Request{PrincipalID: alice, DocumentID: docID, QuestionCount: count}
}

func TestAssemble_AlwaysExactCount(t *testing.T) {
	tests := []struct {
		name         string
		response     llm.MockResponse
		wantDegraded bool
		checkCause   func(error) bool
	}{
		{
			name:     "backend success",
			response: llm.MockResponse{Text: questionSetJSON(20)},
		},
		{
			name:         "backend failure",
			response:     llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("connection refused")}},
			wantDegraded: true,
			checkCause: func(err error) bool {
				var u *llm.ErrProviderUnavailable
				return errors.As(err, &u)
			},
		},
		{
			name:         "backend timeout",
			response:     llm.MockResponse{Text: questionSetJSON(20), Delay: time.Second},
			wantDegraded: true,
			checkCause: func(err error) bool {
				var te *llm.ErrTimeout
				return errors.As(err, &te)
			},
		},
		{
			name:         "garbage response",
			response:     llm.MockResponse{Text: "I'm sorry, I can't help with that."},
			wantDegraded: true,
			checkCause: func(err error) bool {
				var se *quizgen.SchemaError
				return errors.As(err, &se)
			},
		},
		{
			name:         "wrong question count",
			response:     llm.MockResponse{Text: questionSetJSON(19)},
			wantDegraded: true,
			checkCause: func(err error) bool {
				var se *quizgen.SchemaError
				return errors.As(err, &se)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 50, Config{GenerationTimeout: 20 * time.Millisecond}, tt.response)

			out, err := h.asm.Assemble(context.Background(), request(20))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(out.Quiz.Questions) != 20 || out.Quiz.QuestionCount != 20 {
				t.Fatalf("expected 20 questions, got %d (count %d)", len(out.Quiz.Questions), out.Quiz.QuestionCount)
			}
			if out.Degraded != tt.wantDegraded || out.Quiz.Degraded != tt.wantDegraded {
				t.Fatalf("degraded = %v/%v, want %v", out.Degraded, out.Quiz.Degraded, tt.wantDegraded)
			}
			if tt.checkCause != nil && !tt.checkCause(out.Cause) {
				t.Fatalf("unexpected cause %T: %v", out.Cause, out.Cause)
			}
			if !tt.wantDegraded && out.Cause != nil {
				t.Fatalf("expected no cause, got %v", out.Cause)
			}

			// Credits are consumed on the degraded path too.
			if got := h.balance(t, alice); got != 30 {
				t.Fatalf("expected balance 30, got %d", got)
			}
			if out.Balance != 30 {
				t.Fatalf("expected outcome balance 30, got %d", out.Balance)
			}
			if h.provider.CallCount() != 1 {
				t.Fatalf("expected exactly one backend request, got %d", h.provider.CallCount())
			}
			if h.quizzes.count() != 1 {
				t.Fatalf("expected quiz to be saved once, got %d", h.quizzes.count())
			}
		})
	}
}

func TestAssemble_Success(t *testing.T) {
	h := newHarness(t, 20, DefaultConfig(), llm.MockResponse{Text: questionSetJSON(10)})

	out, err := h.asm.Assemble(context.Background(), Request{
		PrincipalID:        alice,
		DocumentID:         docID,
		QuestionCount:      10,
		CustomInstructions: "focus on cells",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := out.Quiz
	if q.Title != "Quiz: biology.pdf" {
		t.Errorf("unexpected default title %q", q.Title)
	}
	if q.PrincipalID != alice || q.DocumentID != docID {
		t.Errorf("unexpected ownership: %+v", q)
	}
	if q.CustomInstructions != "focus on cells" {
		t.Errorf("custom instructions not kept: %q", q.CustomInstructions)
	}
	if q.Questions[0].CorrectIndex != 2 {
		t.Errorf("expected backend questions, got %+v", q.Questions[0])
	}
	if out.Reservation == nil || out.Reservation.Amount != 10 {
		t.Errorf("unexpected reservation: %+v", out.Reservation)
	}
	if got := testutil.ToFloat64(h.metrics.Assemblies.WithLabelValues(metrics.PathGenerated)); got != 1 {
		t.Errorf("expected generated assembly metric 1, got %v", got)
	}
	if got := testutil.ToFloat64(h.metrics.CreditsDebited); got != 10 {
		t.Errorf("expected 10 debited credits, got %v", got)
	}
}

func TestAssemble_CustomTitle(t *testing.T) {
	h := newHarness(t, 20, DefaultConfig(), llm.MockResponse{Text: questionSetJSON(10)})

	req := request(10)
	req.Title = "Chapter 1 review"
	out, err := h.asm.Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Quiz.Title != "Chapter 1 review" {
		t.Fatalf("unexpected title %q", out.Quiz.Title)
	}
}

func TestAssemble_RejectsWithoutDebit(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		req     Request
		wantErr error
		reason  string
	}{
		{"count not allowed", 20, request(15), quiz.ErrInvalidQuestionCount, reasonInvalidCount},
		{"count zero", 20, request(0), quiz.ErrInvalidQuestionCount, reasonInvalidCount},
		{"insufficient balance", 5, request(10), credits.ErrInsufficientCredit, reasonInsufficientCredit},
		{"missing document", 20, Request{PrincipalID: alice, DocumentID: "nope", QuestionCount: 10}, quiz.ErrDocumentNotFound, reasonDocumentNotFound},
		{"foreign document", 20, Request{PrincipalID: bob, DocumentID: docID, QuestionCount: 10}, quiz.ErrDocumentNotFound, reasonDocumentNotFound},
		{"unknown principal", 20, Request{PrincipalID: "carol", DocumentID: docID, QuestionCount: 10}, credits.ErrUnknownPrincipal, reasonOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.balance, DefaultConfig(), llm.MockResponse{Text: questionSetJSON(10)})

			out, err := h.asm.Assemble(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if out != nil {
				t.Fatal("expected no outcome")
			}
			if got := h.balance(t, alice); got != tt.balance {
				t.Fatalf("expected balance %d unchanged, got %d", tt.balance, got)
			}
			if h.provider.CallCount() != 0 {
				t.Fatal("expected no backend request")
			}
			if h.quizzes.count() != 0 {
				t.Fatal("expected no quiz record")
			}
			if got := testutil.ToFloat64(h.metrics.Rejections.WithLabelValues(tt.reason)); got != 1 {
				t.Fatalf("expected rejection %q recorded, got %v", tt.reason, got)
			}
		})
	}
}

func TestAssemble_SaveFailureRefunds(t *testing.T) {
	h := newHarness(t, 20, DefaultConfig(), llm.MockResponse{Text: questionSetJSON(10)})
	h.quizzes.err = errors.New("disk full")

	_, err := h.asm.Assemble(context.Background(), request(10))
	if err == nil {
		t.Fatal("expected save error")
	}
	if got := h.balance(t, alice); got != 20 {
		t.Fatalf("expected refund to restore balance 20, got %d", got)
	}
	if got := testutil.ToFloat64(h.metrics.CreditsRefunded); got != 10 {
		t.Fatalf("expected 10 refunded credits, got %v", got)
	}
}

// failingGetStore fails the nth Get and serves every other call.
type failingGetStore struct {
	*credits.MemoryStore
	failOn int32
	calls  atomic.Int32
}

func (s *failingGetStore) Get(ctx context.Context, principal string) (int64, error) {
	if s.calls.Add(1) == s.failOn {
		return 0, errors.New("connection reset")
	}
	return s.MemoryStore.Get(ctx, principal)
}

func TestAssemble_BalanceReadFailureAfterSave(t *testing.T) {
	// Calls: precondition check, reserve, balance after save.
	store := &failingGetStore{MemoryStore: credits.NewMemoryStore(), failOn: 3}
	store.Open(alice, 30)
	ledger := credits.NewLedger(store)
	asm := New(DefaultConfig(), Deps{
		Ledger:    ledger,
		Generator: quizgen.New(llm.NewMockProvider(llm.MockResponse{Text: questionSetJSON(10)}), quizgen.DefaultConfig()),
		Documents: fakeDocuments{},
		Quizzes:   &fakeQuizzes{},
	})

	out, err := asm.Assemble(context.Background(), request(10))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if out.Balance != 20 {
		t.Fatalf("expected reported balance 20, got %d", out.Balance)
	}
	got, err := ledger.Balance(context.Background(), alice)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got != out.Balance {
		t.Fatalf("reported balance %d, stored %d", out.Balance, got)
	}
}

type providerFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

func (f providerFunc) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f(ctx, req)
}

func (f providerFunc) ModelID() string { return "func" }

func TestAssemble_CanceledRequestLeavesNoDebit(t *testing.T) {
	store := credits.NewMemoryStore()
	store.Open(alice, 20)
	ledger := credits.NewLedger(store)
	quizzes := &fakeQuizzes{}

	ctx, cancel := context.WithCancel(context.Background())
	p := providerFunc(func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	asm := New(DefaultConfig(), Deps{
		Ledger:    ledger,
		Generator: quizgen.New(p, quizgen.DefaultConfig()),
		Documents: fakeDocuments{},
		Quizzes:   quizzes,
	})

	_, err := asm.Assemble(ctx, request(10))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if b, _ := ledger.Balance(context.Background(), alice); b != 20 {
		t.Fatalf("expected balance 20 after cancellation, got %d", b)
	}
	if quizzes.count() != 0 {
		t.Fatal("expected no quiz record")
	}
}

func TestAssemble_ConcurrentRequestsRespectBalance(t *testing.T) {
	responses := make([]llm.MockResponse, 5)
	for i := range responses {
		responses[i] = llm.MockResponse{Text: questionSetJSON(10), Delay: 5 * time.Millisecond}
	}
	h := newHarness(t, 20, DefaultConfig(), responses...)

	var (
		wg               sync.WaitGroup
		mu               sync.Mutex
		wins, rejections int
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.asm.Assemble(context.Background(), request(10))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, credits.ErrInsufficientCredit):
				rejections++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 2 || rejections != 3 {
		t.Fatalf("expected 2 wins and 3 rejections, got %d and %d", wins, rejections)
	}
	if got := h.balance(t, alice); got != 0 {
		t.Fatalf("expected balance 0, got %d", got)
	}
}

func TestQuizTitle(t *testing.T) {
	tests := []struct {
		title, doc, want string
	}{
		{"", "notes.txt", "Quiz: notes.txt"},
		{"   ", "notes.txt", "Quiz: notes.txt"},
		{"Mine", "notes.txt", "Mine"},
	}
	for _, tt := range tests {
		if got := quizTitle(tt.title, tt.doc); got != tt.want {
			t.Errorf("quizTitle(%q, %q) = %q, want %q", tt.title, tt.doc, got, tt.want)
		}
	}
}
