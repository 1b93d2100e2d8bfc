package sandbox

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracecheck/internal/clients/jaeger"
)

type tracesResponse struct {
	Data []jaeger.Trace `json:"data"`
}

func getTraces(t *testing.T, router http.Handler, query string) (int, tracesResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/traces?"+query, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp tracesResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func TestHandleOrderRecordsTrace(t *testing.T) {
	sb := New(Options{ServiceName: "order-processing"})
	router := sb.Router()

	req := httptest.NewRequest(http.MethodPost, "/order", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Order placed", w.Body.String())
	assert.Equal(t, 1, sb.TraceCount())

	code, resp := getTraces(t, router, "service=order-processing&start=0")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Data, 1)

	trace := resp.Data[0]
	assert.Len(t, trace.TraceID, 32)
	assert.ElementsMatch(t, OrderOperations, trace.OperationNames())
	assert.Equal(t, "order-processing", trace.Processes["p1"].ServiceName)
	assert.Empty(t, trace.Spans[0].References)
	assert.Equal(t, trace.Spans[0].SpanID, trace.Spans[1].References[0].SpanID)
}

func TestHandleOrderFailureStillRecords(t *testing.T) {
	sb := New(Options{})
	sb.SetFailOrders(true)

	w := httptest.NewRecorder()
	sb.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/order", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, sb.TraceCount())
}

func TestHandleTracesFilters(t *testing.T) {
	sb := New(Options{ServiceName: "svc"})
	router := sb.Router()

	first := sb.RecordOrder()
	time.Sleep(5 * time.Millisecond)
	cut := time.Now().UnixMicro()
	time.Sleep(5 * time.Millisecond)
	second := sb.RecordOrder()

	_, resp := getTraces(t, router, "service=svc&start=0")
	assert.Len(t, resp.Data, 2)

	_, resp = getTraces(t, router, "service=svc&start="+strconv.FormatInt(cut, 10))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, second.TraceID, resp.Data[0].TraceID)

	_, resp = getTraces(t, router, "service=svc&start=0&limit=1")
	require.Len(t, resp.Data, 1)
	assert.Equal(t, first.TraceID, resp.Data[0].TraceID)

	_, resp = getTraces(t, router, "service=other&start=0")
	assert.Empty(t, resp.Data)

	_, resp = getTraces(t, router, "service=svc&operation=changeInventory")
	assert.Len(t, resp.Data, 2)

	_, resp = getTraces(t, router, "service=svc&operation=refund")
	assert.Empty(t, resp.Data)

	code, _ := getTraces(t, router, "start=0")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = getTraces(t, router, "service=svc&start=yesterday")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFlushDelayHidesTraces(t *testing.T) {
	sb := New(Options{ServiceName: "svc", FlushDelay: time.Hour})
	router := sb.Router()
	sb.RecordOrder()

	_, resp := getTraces(t, router, "service=svc&start=0")
	assert.Empty(t, resp.Data)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/services", nil))
	assert.JSONEq(t, `{"data": [], "total": 0, "limit": 0, "offset": 0, "errors": null}`, w.Body.String())

	sb.SetFlushDelay(0)
	sb.RecordOrder()
	_, resp = getTraces(t, router, "service=svc&start=0")
	assert.Len(t, resp.Data, 1)
}

func TestHandleServices(t *testing.T) {
	sb := New(Options{ServiceName: "order-processing"})
	sb.RecordOrder()

	w := httptest.NewRecorder()
	sb.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/services", nil))

	var resp struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"order-processing"}, resp.Data)
}

func TestHandleTraceByID(t *testing.T) {
	sb := New(Options{})
	trace := sb.RecordOrder()
	router := sb.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/traces/"+trace.TraceID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/traces/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMalformedMode(t *testing.T) {
	sb := New(Options{})
	sb.SetMalformed(true)
	router := sb.Router()

	for _, path := range []string{"/api/services", "/api/traces?service=x"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, json.Valid(w.Body.Bytes()), path)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, json.Valid(w.Body.Bytes()))
}
