// Package analysis runs the chat report pipeline: parse, metrics, metric findings, affection
// scoring and interpretation, strictly in that order.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/theimaginaryfoundation/chatlens/analysis/affection"
	"github.com/theimaginaryfoundation/chatlens/analysis/chatlog"
	"github.com/theimaginaryfoundation/chatlens/analysis/flags"
	"github.com/theimaginaryfoundation/chatlens/analysis/interpret"
	"github.com/theimaginaryfoundation/chatlens/analysis/metrics"
)

const tracerName = "github.com/theimaginaryfoundation/chatlens/analysis"

var ErrNoValidMessages = errors.New("no valid messages found, check format")

// Result is the complete report for one chat.
type Result struct {
	RunID                 string             `json:"runId"`
	GeneratedAt           time.Time          `json:"generatedAt"`
	ParsedChatData        chatlog.ParsedChat `json:"parsedChatData"`
	CalculatedMetrics     *metrics.Metrics   `json:"calculatedMetrics"`
	AffectionAnalysis     affection.Result   `json:"affectionAnalysis"`
	AnalysisFlags         flags.Strings      `json:"analysisFlags"`
	Findings              flags.Flags        `json:"findings"`
	InterpretationDetails interpret.Details  `json:"interpretationDetails"`
}

type Analyzer struct {
	parser *chatlog.Parser
	engine *affection.Engine
	log    zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

type Option func(*Analyzer)

func WithParser(p *chatlog.Parser) Option {
	return func(a *Analyzer) {
		if p != nil {
			a.parser = p
		}
	}
}

// WithEngine sets the affection engine. The default is lexical only.
func WithEngine(e *affection.Engine) Option {
	return func(a *Analyzer) {
		if e != nil {
			a.engine = e
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Analyzer) {
		if tp != nil {
			a.tracer = tp.Tracer(tracerName)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRunID replaces the uuid run identifier generator.
func WithRunID(f func() string) Option {
	return func(a *Analyzer) {
		if f != nil {
			a.newID = f
		}
	}
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		log:    zerolog.Nop(),
		tracer: noop.NewTracerProvider().Tracer(tracerName),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.parser == nil {
		a.parser = chatlog.NewParser(chatlog.WithLogger(a.log), chatlog.WithClock(a.now))
	}
	if a.engine == nil {
		a.engine = affection.NewEngine(affection.WithLogger(a.log))
	}
	a.log = a.log.With().Str("component", "analysis").Logger()
	return a
}

// Analyze produces the report for an exported chat. It fails with ErrNoValidMessages when
// nothing parses, and with ctx.Err() when cancelled; classifier problems only show up as
// findings.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Result, error) {
	runID := a.newID()
	ctx, span := a.tracer.Start(ctx, "chatlens.analyze", trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	res, err := a.run(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	res.RunID = runID
	res.GeneratedAt = a.now().UTC()
	span.SetAttributes(
		attribute.Int("messages", res.ParsedChatData.Stats.ValidMessages),
		attribute.Int("participants", len(res.CalculatedMetrics.Global.Participants)),
		attribute.Bool("ai.performed", res.AffectionAnalysis.AIPerformed),
	)
	return res, nil
}

func (a *Analyzer) run(ctx context.Context, text string) (*Result, error) {
	res := &Result{}
	var rec flags.Flags

	err := a.stage(ctx, "parse", func(context.Context) {
		res.ParsedChatData = a.parser.Parse(text)
	})
	if err != nil {
		return nil, err
	}
	parsed := res.ParsedChatData
	if len(parsed.Messages) == 0 {
		return nil, fmt.Errorf("%w (failedLines=%d)", ErrNoValidMessages, parsed.Stats.FailedLines)
	}

	err = a.stage(ctx, "metrics", func(context.Context) {
		res.CalculatedMetrics = metrics.Calculate(parsed.Messages)
		interpret.MetricFlags(res.CalculatedMetrics, &rec)
	})
	if err != nil {
		return nil, err
	}

	err = a.stage(ctx, "affection", func(ctx context.Context) {
		res.AffectionAnalysis = a.engine.Analyze(ctx, parsed.Messages, res.CalculatedMetrics, &rec)
	})
	if err != nil {
		return nil, err
	}

	err = a.stage(ctx, "interpret", func(context.Context) {
		res.InterpretationDetails = interpret.Interpret(res.CalculatedMetrics, res.AffectionAnalysis.Index, &rec)
	})
	if err != nil {
		return nil, err
	}

	res.Findings = rec
	res.AnalysisFlags = rec.Strings()
	return res, nil
}

// stage runs fn under its own span and reports ctx.Err() once it returns.
func (a *Analyzer) stage(ctx context.Context, name string, fn func(context.Context)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := a.tracer.Start(ctx, "chatlens."+name)
	defer span.End()

	start := time.Now()
	fn(ctx)
	a.log.Debug().Str("stage", name).Dur("took", time.Since(start)).Msg("stage done")

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
