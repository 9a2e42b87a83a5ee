package search

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/edgard/searchbyimage/internal/saucenao"
)

const tracerName = "github.com/edgard/searchbyimage/internal/search"

// Searcher fetches raw results for a public image URL.
type Searcher interface {
	Search(ctx context.Context, imageURL string) ([]saucenao.Result, error)
}

// Outcome is the rendered reply together with how many results made it in.
type Outcome struct {
	Text      string
	Accepted  int
	Threshold float64
}

// Matched reports whether at least one result reached the threshold.
func (o Outcome) Matched() bool {
	return o.Accepted > 0
}

// Engine runs a search and formats the reply.
type Engine struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewEngine returns an Engine backed by searcher.
func NewEngine(searcher Searcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		searcher: searcher,
		logger:   logger.With("component", "search_engine"),
	}
}

// Search looks up imageURL and renders the reply for threshold. Errors from
// the searcher are returned unchanged so callers can inspect their code.
func (e *Engine) Search(ctx context.Context, imageURL string, threshold float64) (Outcome, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "search.engine")
	defer span.End()
	span.SetAttributes(attribute.Float64("search.threshold", threshold))

	results, err := e.searcher.Search(ctx, imageURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}

	text, accepted := render(results, threshold)
	span.SetAttributes(
		attribute.Int("search.results", len(results)),
		attribute.Int("search.accepted", accepted))
	e.logger.DebugContext(ctx, "Search finished",
		"results", len(results),
		"accepted", accepted,
		"threshold", threshold)

	return Outcome{Text: text, Accepted: accepted, Threshold: threshold}, nil
}
