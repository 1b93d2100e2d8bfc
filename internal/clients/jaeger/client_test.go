package jaeger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"tracecheck/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tracesPayload = `{
	"data": [
		{
			"traceID": "trace-123",
			"spans": [
				{"traceID": "trace-123", "spanID": "a", "operationName": "POST", "startTime": 1700000000000000, "duration": 1200},
				{"traceID": "trace-123", "spanID": "b", "operationName": "placeOrder", "startTime": 1700000000000100, "duration": 900,
				 "references": [{"refType": "CHILD_OF", "traceID": "trace-123", "spanID": "a"}], "processID": "p1"}
			],
			"processes": {"p1": {"serviceName": "order-processing"}}
		},
		{"traceID": "trace-456", "spans": []}
	],
	"total": 0,
	"limit": 0,
	"offset": 0,
	"errors": null
}`

func TestBuildTracesParams(t *testing.T) {
	since := time.UnixMilli(1700000000123)
	extra := url.Values{
		"operation": []string{"placeOrder"},
		"service":   []string{"someone-else"},
		"start":     []string{"0"},
	}

	params := BuildTracesParams("order-processing", since, extra)

	assert.Equal(t, "order-processing", params.Get("service"))
	assert.Equal(t, "1700000000123000", params.Get("start"))
	assert.Equal(t, "placeOrder", params.Get("operation"))
	assert.Len(t, params["service"], 1)
	assert.Equal(t, "someone-else", extra.Get("service"), "caller's values must not be mutated")
}

func TestToMicrosDropsSubMillisecond(t *testing.T) {
	ts := time.Unix(1700000000, 123456789)
	assert.Equal(t, int64(1700000000123000), ToMicros(ts))
}

func TestGetTraces(t *testing.T) {
	since := time.UnixMilli(1700000000000)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/traces", r.URL.Path)
		assert.Equal(t, "order-processing", r.URL.Query().Get("service"))
		assert.Equal(t, "1700000000000000", r.URL.Query().Get("start"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(tracesPayload))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil)
	traces, err := client.GetTraces(context.Background(), "order-processing", since, url.Values{"limit": []string{"20"}})

	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.Equal(t, "trace-123", traces[0].TraceID)
	assert.Equal(t, []string{"POST", "placeOrder"}, traces[0].OperationNames())
	assert.Equal(t, "order-processing", traces[0].Processes["p1"].ServiceName)
	assert.Equal(t, "a", traces[0].Spans[1].References[0].SpanID)
	assert.Equal(t, 0, traces[1].SpanCount())
}

func TestGetTracesEmptyAndNullData(t *testing.T) {
	for name, body := range map[string]string{
		"empty array": `{"data": []}`,
		"null":        `{"data": null}`,
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			client := NewClient(server.URL, 5*time.Second, nil)
			traces, err := client.GetTraces(context.Background(), "svc", time.Now(), nil)

			require.NoError(t, err)
			assert.NotNil(t, traces)
			assert.Empty(t, traces)
		})
	}
}

func TestGetTracesMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"truncated", `{"data": [{"traceID": "x"`},
		{"missing data", `{"errors": [{"code": 500, "msg": "boom"}]}`},
		{"data wrong type", `{"data": {"traceID": "x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, 5*time.Second, nil)
			traces, err := client.GetTraces(context.Background(), "svc", time.Now(), nil)

			assert.Nil(t, traces)
			var malformed *models.MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Contains(t, malformed.URL, "/api/traces")
		})
	}
}

func TestGetTracesUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil)
	_, err := client.GetTraces(context.Background(), "svc", time.Now(), nil)

	var transport *models.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, http.StatusInternalServerError, transport.StatusCode)
}

func TestGetTracesConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	client := NewClient(addr, time.Second, nil)
	_, err := client.GetTraces(context.Background(), "svc", time.Now(), nil)

	var transport *models.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Zero(t, transport.StatusCode)
	assert.Error(t, transport.Err)
}

func TestGetTraceByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/traces/abc123", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data": [{"traceID": "abc123", "spans": [{"operationName": "POST"}]}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil)
	trace, err := client.GetTraceByID(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "abc123", trace.TraceID)
	assert.Len(t, trace.FindByOperationName("POST"), 1)
}

func TestGetServices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/services", r.URL.Path)
		w.Write([]byte(`{"data": ["order-processing", "jaeger-query", "order-processing"], "total": 2}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil)
	services, err := client.GetServices(context.Background())

	require.NoError(t, err)
	assert.True(t, services.Contains("order-processing"))
	assert.False(t, services.Contains("billing"))
	assert.Equal(t, []string{"jaeger-query", "order-processing"}, services.Sorted())
}

func TestGetServicesMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"services": ["order-processing"]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil)
	services, err := client.GetServices(context.Background())

	assert.Nil(t, services)
	var malformed *models.MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
}
