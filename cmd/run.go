package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/docquiz/internal/assembler"
	"github.com/abhisek/docquiz/internal/config"
	"github.com/abhisek/docquiz/internal/credits"
	"github.com/abhisek/docquiz/internal/llm"
	"github.com/abhisek/docquiz/internal/logging"
	"github.com/abhisek/docquiz/internal/metrics"
	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/quizgen"
	"github.com/abhisek/docquiz/internal/redisstore"
	"github.com/abhisek/docquiz/internal/scoring"
	"github.com/abhisek/docquiz/internal/store"
)

// app holds the dependencies shared by commands.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *store.Store
	redis   *redis.Client
	metrics *metrics.Metrics

	// redisBalances is set when Redis is authoritative for balances.
	redisBalances *redisstore.BalanceStore
	ledger        *credits.Ledger
	quizzes       scoring.QuizReader

	printMetrics bool
	errOut       io.Writer
}

// openApp loads config, opens the store, and builds the ledger. Callers
// must Close the returned app.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	dsn, err := resolveDSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		metrics: metrics.New(),
		errOut:  cmd.ErrOrStderr(),
	}
	a.printMetrics, _ = cmd.Flags().GetBool("metrics")

	var balances credits.BalanceStore = st.Balances()
	a.quizzes = st.Quizzes()
	if cfg.Redis.Enabled() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(cmd.Context()).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		a.redisBalances = redisstore.NewBalanceStore(a.redis)
		balances = a.redisBalances
		a.quizzes = redisstore.NewQuizCache(a.redis, st.Quizzes(), cfg.Redis.QuizTTL, logger)
	}
	a.ledger = credits.NewLedger(balances)

	return a, nil
}

// Close releases the app's resources and prints metrics if requested.
func (a *app) Close() {
	if a.printMetrics {
		a.writeMetrics()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	a.store.Close()
	_ = a.logger.Sync()
}

func (a *app) writeMetrics() {
	samples, err := a.metrics.Counters()
	if err != nil {
		fmt.Fprintln(a.errOut, "gather metrics:", err)
		return
	}
	for _, s := range samples {
		if s.Labels != "" {
			fmt.Fprintf(a.errOut, "%s{%s} %g\n", s.Name, s.Labels, s.Value)
		} else {
			fmt.Fprintf(a.errOut, "%s %g\n", s.Name, s.Value)
		}
	}
}

// newAssembler builds the generation pipeline. An unconfigured backend is
// not fatal: every assembly then takes the fallback path.
func (a *app) newAssembler(ctx context.Context) *assembler.Assembler {
	var gen quizgen.Generator
	llmCfg := a.cfg.LLM
	if !llmCfg.DiscoverKeys() {
		err := llmCfg.Validate()
		fmt.Fprintln(a.errOut, "LLM provider not configured:", err)
		fmt.Fprintln(a.errOut, "Questions will be generated from placeholders.")
		gen = unavailableGenerator{err: err}
	} else {
		provider, err := llm.NewProvider(ctx, llmCfg, a.store.EventRepo(), a.logger)
		if err != nil {
			fmt.Fprintln(a.errOut, "LLM provider unavailable:", err)
			gen = unavailableGenerator{err: err}
		} else {
			gen = quizgen.New(provider, a.cfg.QuizGen())
		}
	}

	return assembler.New(a.cfg.Assembler(), assembler.Deps{
		Ledger:    a.ledger,
		Generator: gen,
		Documents: a.store.Documents(),
		Quizzes:   a.store.Quizzes(),
		Logger:    a.logger,
		Metrics:   a.metrics,
	})
}

func (a *app) newScorer() *scoring.Service {
	return scoring.NewService(a.quizzes, a.store.Results(), a.logger, a.metrics)
}

// ownedQuiz loads a quiz and hides it from anyone but its owner.
func (a *app) ownedQuiz(ctx context.Context, principal, id string) (*quiz.Quiz, error) {
	q, err := a.quizzes.GetQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.PrincipalID != principal {
		return nil, quiz.ErrQuizNotFound
	}
	return q, nil
}

// unavailableGenerator fails every request so the assembler falls back.
type unavailableGenerator struct {
	err error
}

func (g unavailableGenerator) Generate(context.Context, quizgen.GenerateInput) ([]quiz.Question, error) {
	return nil, &llm.ErrProviderUnavailable{Err: g.err}
}
