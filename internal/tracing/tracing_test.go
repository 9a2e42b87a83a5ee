package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/edgard/searchbyimage/internal/config"
)

func TestNewProviderExportsSpans(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	tp, err := NewProvider(config.TracingConfig{ServiceName: "searchbyimage-test", SampleRatio: 1}, &out)
	require.NoError(t, err)

	_, span := tp.Tracer("tracing_test").Start(context.Background(), "saucenao.lookup")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, out.String(), "saucenao.lookup")
	assert.Contains(t, out.String(), "searchbyimage-test")
}

func TestNewProviderZeroRatioDropsSpans(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	tp, err := NewProvider(config.TracingConfig{ServiceName: "searchbyimage-test", SampleRatio: 0}, &out)
	require.NoError(t, err)

	_, span := tp.Tracer("tracing_test").Start(context.Background(), "saucenao.lookup")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Empty(t, out.String())
}

func TestNewProviderRedactsURLQuery(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	tp, err := NewProvider(config.TracingConfig{ServiceName: "searchbyimage-test", SampleRatio: 1}, &out)
	require.NoError(t, err)

	full := "https://saucenao.example/search.php?api_key=SECRETKEY&url=https%3A%2F%2Fapi.telegram.org%2Ffile%2Fbot1%3ATOKEN%2Fa.jpg"
	_, span := tp.Tracer("tracing_test").Start(context.Background(), "saucenao GET /search.php",
		trace.WithAttributes(attribute.String("url.full", full), attribute.String("http.url", full)))
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, out.String(), "https://saucenao.example/search.php")
	assert.NotContains(t, out.String(), "SECRETKEY")
	assert.NotContains(t, out.String(), "TOKEN")
}

func TestStripQuery(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://host.example/path", stripQuery("https://user:pw@host.example/path?a=1#frag"))
	assert.Equal(t, "", stripQuery("://bad"))
}
