package decoding

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/tokenfsm/automaton"
	"github.com/BaSui01/tokenfsm/types"
)

const instrumentationName = "github.com/BaSui01/tokenfsm/decoding"

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxSteps sets the step budget of every session. Without it the budget
// is the automaton depth, which is enough to reach any accepting state.
// Negative values are rejected by New.
func WithMaxSteps(n int) Option {
	return func(d *Decoder) {
		d.maxSteps = n
		d.maxStepsSet = true
	}
}

// WithSelector sets the selection policy. Default Argmax.
func WithSelector(s Selector) Option {
	return func(d *Decoder) {
		if s != nil {
			d.selector = s
		}
	}
}

// WithAcceptPolicy sets the accept policy. Default StopOnFirstAccept.
func WithAcceptPolicy(p AcceptPolicy) Option {
	return func(d *Decoder) { d.accept = p }
}

// WithLogger sets the decoder logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver registers an observer for scorer calls, steps and results.
func WithObserver(o Observer) Option {
	return func(d *Decoder) { d.observers = append(d.observers, o) }
}

// WithTracer overrides the OpenTelemetry tracer. Default is the global one.
func WithTracer(t trace.Tracer) Option {
	return func(d *Decoder) {
		if t != nil {
			d.tracer = t
		}
	}
}

// Decoder holds the shared, read-only configuration of constrained decoding
// sessions: the transition index, the scorer and the policies. A Decoder is
// safe for concurrent use; each Session it creates is not.
type Decoder struct {
	index    *automaton.Index
	scorer   Scorer
	maxSteps int
	// maxStepsSet 是否显式设置了步数预算
	maxStepsSet bool
	selector    Selector
	accept      AcceptPolicy
	logger      *zap.Logger
	observers   []Observer
	observer    Observer
	tracer      trace.Tracer
}

// New validates the configuration and returns a Decoder.
func New(index *automaton.Index, scorer Scorer, opts ...Option) (*Decoder, error) {
	if index == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "transition index is required")
	}
	if scorer == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "scorer is required")
	}
	d := &Decoder{
		index:    index,
		scorer:   scorer,
		selector: Argmax{},
		accept:   StopOnFirstAccept,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(d)
	}

	a := index.Automaton()
	if !d.maxStepsSet {
		d.maxSteps = a.Depth()
	}
	if d.maxSteps < 0 {
		return nil, types.Errorf(types.ErrInvalidRequest, "max steps must not be negative, got %d", d.maxSteps)
	}
	if d.accept != StopOnFirstAccept && d.accept != PreferLongestAccept {
		return nil, types.Errorf(types.ErrInvalidRequest, "unknown accept policy %d", int(d.accept))
	}

	vocab := scorer.VocabSize()
	if vocab <= 0 {
		return nil, types.Errorf(types.ErrInvalidRequest, "scorer vocabulary size must be positive, got %d", vocab)
	}
	for _, tr := range a.Transitions() {
		if tr.Token >= vocab {
			return nil, types.Errorf(types.ErrInvalidRequest,
				"automaton token %d is outside the scorer vocabulary of %d", tr.Token, vocab)
		}
	}

	d.observer = Observers(d.observers...)
	d.logger = d.logger.With(zap.String("component", "decoder"))
	return d, nil
}

// Index returns the shared transition index.
func (d *Decoder) Index() *automaton.Index { return d.index }

// MaxSteps returns the per-session step budget.
func (d *Decoder) MaxSteps() int { return d.maxSteps }

// AcceptPolicy returns the configured accept policy.
func (d *Decoder) AcceptPolicy() AcceptPolicy { return d.accept }

// NewSession starts a session at the start state. prompt is the already
// scored context; it is copied and never modified.
func (d *Decoder) NewSession(prompt []int) *Session {
	return d.newSession(prompt, nil, d.index.Automaton().Start(), true)
}

// Resume starts a session whose output already contains generated. The step
// budget applies to the steps taken by the new session only.
func (d *Decoder) Resume(prompt, generated []int) (*Session, error) {
	state, ok := d.index.Automaton().Walk(generated)
	if !ok {
		return nil, types.Errorf(types.ErrInvalidRequest, "generated tokens %v leave the automaton", generated)
	}
	return d.newSession(prompt, generated, state, false), nil
}

// Decode runs a fresh session to completion.
func (d *Decoder) Decode(ctx context.Context, prompt []int) (*Result, error) {
	return d.NewSession(prompt).Run(ctx)
}

func (d *Decoder) newSession(prompt, generated []int, state automaton.State, fresh bool) *Session {
	buf := make([]int, 0, len(prompt)+len(generated)+min(d.maxSteps, d.index.Automaton().Depth()))
	buf = append(buf, prompt...)
	buf = append(buf, generated...)
	return &Session{
		id:        uuid.NewString(),
		d:         d,
		buf:       buf,
		promptLen: len(prompt),
		state:     state,
		fresh:     fresh,
	}
}

// Session is one decoding run. It owns its mutable state (tokens, step
// count, current automaton state) and must not be shared between goroutines.
type Session struct {
	id        string
	d         *Decoder
	buf       []int // prompt followed by generated tokens
	promptLen int
	state     automaton.State
	steps     int
	fresh     bool
	started   time.Time
	result    *Result
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current automaton state.
func (s *Session) State() automaton.State { return s.state }

// Steps returns the number of completed steps.
func (s *Session) Steps() int { return s.steps }

// Tokens returns a copy of the generated tokens.
func (s *Session) Tokens() []int {
	return slices.Clone(s.buf[s.promptLen:])
}

// Result returns the terminal result, or nil while the session is running.
func (s *Session) Result() *Result { return s.result }

// Done reports whether the session has terminated.
func (s *Session) Done() bool { return s.result != nil }

// Step performs at most one generation step. It returns done=true once the
// session has terminated; calling it again is a no-op. An error aborts the
// step without changing the session state.
func (s *Session) Step(ctx context.Context) (bool, error) {
	if s.result != nil {
		return true, nil
	}
	if s.started.IsZero() {
		s.started = time.Now()
	}
	d := s.d
	idx := d.index

	if s.fresh {
		s.fresh = false
		if d.accept == StopOnFirstAccept && idx.IsAccepting(s.state) {
			s.finish(Accepted)
			return true, nil
		}
	}

	if s.steps >= d.maxSteps {
		if d.accept == PreferLongestAccept && idx.IsAccepting(s.state) {
			s.finish(Accepted)
		} else {
			s.finish(BudgetExhausted)
		}
		return true, nil
	}

	allowed := idx.ValidTransitions(s.state)
	if len(allowed) == 0 {
		s.finish(DeadEnd)
		return true, nil
	}

	if err := ctx.Err(); err != nil {
		return false, types.NewError(types.ErrCancelled, "decoding cancelled before scoring").WithCause(err)
	}

	scores, err := s.score(ctx)
	if err != nil {
		return false, err
	}

	dist, err := Restrict(scores, allowed)
	if err != nil {
		return false, err
	}
	pick, err := d.selector.Select(dist)
	if err != nil {
		return false, err
	}
	if pick < 0 || pick >= len(allowed) {
		return false, types.Errorf(types.ErrInvariantViolation, "selector %s returned position %d of %d", d.selector.Name(), pick, len(allowed))
	}

	edge := allowed[pick]
	from := s.state
	s.buf = append(s.buf, edge.Token)
	s.state = edge.Next
	s.steps++

	d.observer.ObserveStep(StepEvent{
		SessionID:   s.id,
		Step:        s.steps,
		Token:       edge.Token,
		From:        from,
		To:          edge.Next,
		Probability: dist.Probs[pick],
		Allowed:     len(allowed),
	})
	if ce := d.logger.Check(zap.DebugLevel, "decode step"); ce != nil {
		ce.Write(
			zap.String("session_id", s.id),
			zap.Int("step", s.steps),
			zap.Int("token", edge.Token),
			zap.Int("state", int(edge.Next)),
			zap.Float64("probability", dist.Probs[pick]),
			zap.Int("allowed", len(allowed)),
		)
	}

	if idx.IsAccepting(s.state) {
		if d.accept == StopOnFirstAccept || len(idx.ValidTransitions(s.state)) == 0 {
			s.finish(Accepted)
			return true, nil
		}
	}
	return false, nil
}

func (s *Session) score(ctx context.Context) ([]float64, error) {
	d := s.d
	start := time.Now()
	// Clip so a scorer appending to the context cannot overwrite our buffer.
	scores, err := d.scorer.Score(ctx, slices.Clip(s.buf))
	elapsed := time.Since(start)

	if err == nil && len(scores) != d.scorer.VocabSize() {
		err = types.Errorf(types.ErrScorerFailure, "score vector has %d entries, vocabulary has %d",
			len(scores), d.scorer.VocabSize())
	}
	d.observer.ObserveScore(elapsed, err)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, types.NewError(types.ErrCancelled, "decoding cancelled while scoring").WithCause(err)
		}
		if types.IsCode(err, types.ErrScorerFailure) {
			return nil, err
		}
		return nil, types.NewError(types.ErrScorerFailure, "scorer call failed").
			WithCause(err).
			WithRetryable(types.IsRetryable(err))
	}
	return scores, nil
}

func (s *Session) finish(o Outcome) {
	s.result = &Result{
		SessionID:  s.id,
		Outcome:    o,
		Tokens:     s.Tokens(),
		Steps:      s.steps,
		FinalState: s.state,
		Duration:   time.Since(s.started),
	}
	s.d.observer.ObserveResult(s.result)
	s.d.logger.Debug("decode finished",
		zap.String("session_id", s.id),
		zap.Stringer("outcome", o),
		zap.Int("steps", s.steps),
		zap.Ints("tokens", s.result.Tokens),
	)
}

// Run steps the session until it terminates or a step fails. On failure the
// session keeps the state of its last completed step and can be run again.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	d := s.d
	ctx, span := d.tracer.Start(ctx, "tokenfsm.decode",
		trace.WithAttributes(
			attribute.String("tokenfsm.session_id", s.id),
			attribute.Int("tokenfsm.max_steps", d.maxSteps),
			attribute.String("tokenfsm.selector", d.selector.Name()),
			attribute.String("tokenfsm.accept_policy", d.accept.String()),
		))
	defer span.End()

	for {
		done, err := s.Step(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			d.logger.Warn("decode aborted",
				zap.String("session_id", s.id),
				zap.Int("steps", s.steps),
				zap.Error(err),
			)
			return nil, err
		}
		if done {
			break
		}
	}

	span.SetAttributes(
		attribute.String("tokenfsm.outcome", s.result.Outcome.String()),
		attribute.Int("tokenfsm.steps", s.result.Steps),
	)
	return s.result, nil
}
