package assist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duckask/duckask/internal/nl2sql"
	"github.com/duckask/duckask/internal/observability"
	"github.com/duckask/duckask/internal/schema"
	"github.com/duckask/duckask/internal/sqlcheck"
	"github.com/duckask/duckask/internal/store"
)

const DefaultMaxAttempts = 3

// Executor is the database collaborator contract consumed by the controller.
// *store.Store satisfies it.
type Executor interface {
	Execute(ctx context.Context, sql string, rowLimit int) (store.Result, error)
}

// Options configures the retry loop. Explicit configuration rather than
// constants keeps the controller testable with small caps.
type Options struct {
	// MaxAttempts bounds the number of Generator calls per question.
	MaxAttempts int
	// GenerateTimeout and ExecuteTimeout bound the external calls so a hung
	// collaborator cannot block a question indefinitely. Zero means no bound
	// beyond the caller's context.
	GenerateTimeout time.Duration
	ExecuteTimeout  time.Duration
	StrictTypes     bool
	RowLimit        int
}

type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Attempt records one loop iteration for diagnosis: the candidate, its
// verdict, and the execution error if the candidate failed at the database.
type Attempt struct {
	Index        int              `json:"index"`
	SQL          string           `json:"sql"`
	Verdict      sqlcheck.Verdict `json:"verdict"`
	ExecuteError string           `json:"execute_error,omitempty"`
}

// Outcome is the only output exposed to the caller: rows on success, the full
// attempt history and last rejection reason on failure.
type Outcome struct {
	QuestionID string           `json:"question_id"`
	Question   string           `json:"question"`
	Status     Status           `json:"status"`
	Result     *store.Result    `json:"result,omitempty"`
	Attempts   []Attempt        `json:"attempts"`
	LastReason *sqlcheck.Reason `json:"last_reason,omitempty"`
}

type Controller struct {
	generator nl2sql.Generator
	executor  Executor
	schema    schema.Descriptor
	opts      Options
	logger    *slog.Logger
}

func NewController(generator nl2sql.Generator, executor Executor, desc schema.Descriptor, opts Options, logger *slog.Logger) (*Controller, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		generator: generator,
		executor:  executor,
		schema:    desc,
		opts:      opts,
		logger:    logger,
	}, nil
}

// Ask runs the generate -> validate -> execute loop for one question. The
// loop is synchronous: each attempt completes before the next begins, and at
// most one candidate query is live at a time.
//
// A non-nil error means the generator itself failed (unreachable service,
// unusable response); that is fatal for the question and is not retried.
// Correctable rejections (validation and execution failures) never surface as
// errors: they drive the retry loop and, at the attempt cap, a failed Outcome.
func (c *Controller) Ask(ctx context.Context, question string) (Outcome, error) {
	outcome := Outcome{
		QuestionID: uuid.NewString(),
		Question:   question,
		Status:     StatusFailed,
		Attempts:   make([]Attempt, 0, c.opts.MaxAttempts),
	}
	if strings.TrimSpace(question) == "" {
		return outcome, fmt.Errorf("question is required")
	}

	logger := c.logger.With(slog.String("question_id", outcome.QuestionID))
	var feedback *sqlcheck.Reason

	for attemptIndex := 0; ; attemptIndex++ {
		candidate, err := c.generate(ctx, question, feedback)
		if err != nil {
			logger.Error("sql generation failed",
				slog.Int("attempt", attemptIndex),
				slog.Any("error", err),
			)
			observability.RecordQuestion(string(StatusFailed))
			outcome.LastReason = feedback
			return outcome, fmt.Errorf("generate sql: %w", err)
		}
		observability.RecordAttempt()

		attempt := Attempt{
			Index:   attemptIndex,
			SQL:     candidate.SQL,
			Verdict: sqlcheck.Validate(candidate.SQL, c.schema, sqlcheck.Options{StrictTypes: c.opts.StrictTypes}),
		}

		var reason *sqlcheck.Reason
		if attempt.Verdict.Valid {
			result, execErr := c.execute(ctx, candidate.SQL)
			if execErr == nil {
				outcome.Attempts = append(outcome.Attempts, attempt)
				outcome.Status = StatusDone
				outcome.Result = &result
				logger.Info("question answered",
					slog.Int("attempts", len(outcome.Attempts)),
					slog.Int("rows", len(result.Rows)),
					slog.String("sql", candidate.SQL),
				)
				observability.RecordQuestion(string(StatusDone))
				return outcome, nil
			}
			// Schema-valid SQL can still fail at execution; route the error
			// through the same attempt-counting path as a validation failure.
			attempt.ExecuteError = execErr.Error()
			execReason := sqlcheck.ExecutionReason(execErr)
			reason = &execReason
		} else {
			reason = attempt.Verdict.Reason
		}

		outcome.Attempts = append(outcome.Attempts, attempt)
		outcome.LastReason = reason
		observability.RecordRejection(string(reason.Kind))
		logger.Info("candidate rejected",
			slog.Int("attempt", attemptIndex),
			slog.String("kind", string(reason.Kind)),
			slog.String("reason", reason.String()),
			slog.String("sql", candidate.SQL),
		)

		if attemptIndex+1 >= c.opts.MaxAttempts {
			logger.Warn("attempt cap reached",
				slog.Int("max_attempts", c.opts.MaxAttempts),
			)
			observability.RecordQuestion(string(StatusFailed))
			return outcome, nil
		}
		feedback = reason
	}
}

func (c *Controller) generate(ctx context.Context, question string, feedback *sqlcheck.Reason) (nl2sql.Candidate, error) {
	if c.opts.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.GenerateTimeout)
		defer cancel()
	}
	start := time.Now()
	candidate, err := c.generator.Generate(ctx, nl2sql.Request{
		Question: question,
		Schema:   c.schema,
		Feedback: feedback,
	})
	observability.ObserveGeneration(time.Since(start))
	return candidate, err
}

func (c *Controller) execute(ctx context.Context, sqlText string) (store.Result, error) {
	if c.opts.ExecuteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ExecuteTimeout)
		defer cancel()
	}
	start := time.Now()
	result, err := c.executor.Execute(ctx, sqlText, c.opts.RowLimit)
	observability.ObserveExecution(time.Since(start))
	return result, err
}
