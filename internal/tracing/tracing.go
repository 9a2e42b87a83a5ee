// Package tracing builds the OpenTelemetry tracer provider installed when
// tracing is enabled in the configuration.
package tracing

import (
	"context"
	"io"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/edgard/searchbyimage/internal/config"
	apperrors "github.com/edgard/searchbyimage/internal/errors"
)

// URL attributes written by otelhttp, under the current and the older
// semantic conventions.
var urlKeys = []attribute.Key{"url.full", "http.url"}

// NewProvider returns a provider that batches sampled spans and writes them
// to w as JSON. Callers own the provider and must Shutdown it to flush.
func NewProvider(cfg config.TracingConfig, w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, apperrors.NewConfigError("failed to create trace exporter", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(queryRedactor{}),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	), nil
}

// queryRedactor strips query strings and user info from URL attributes when a
// span starts. SauceNAO request URLs carry the API key and the image link in
// their query.
type queryRedactor struct{}

func (queryRedactor) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	var redacted []attribute.KeyValue
	for _, kv := range s.Attributes() {
		for _, key := range urlKeys {
			if kv.Key == key {
				redacted = append(redacted, key.String(stripQuery(kv.Value.AsString())))
			}
		}
	}
	if len(redacted) > 0 {
		s.SetAttributes(redacted...)
	}
}

func (queryRedactor) OnEnd(sdktrace.ReadOnlySpan) {}

func (queryRedactor) Shutdown(context.Context) error { return nil }

func (queryRedactor) ForceFlush(context.Context) error { return nil }

func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
