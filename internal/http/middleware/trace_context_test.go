package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yungbote/stepwise-backend/internal/pkg/ctxutil"
)

func TestAttachTraceContextTagsSpanWithCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	userID := uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx, span := tp.Tracer("test").Start(c.Request.Context(), "request")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.End()
	})
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: userID, IsPremium: true, Language: "en"})
		c.Request = c.Request.WithContext(ctx)
		if td := ctxutil.GetTraceData(ctx); td == nil || td.RequestID != "req-1" {
			t.Errorf("trace data = %+v", td)
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := w.Header().Get(headerTraceID); got != spans[0].SpanContext().TraceID().String() {
		t.Fatalf("trace header %q does not match span %s", got, spans[0].SpanContext().TraceID())
	}
	if got := w.Header().Get(headerRequestID); got != "req-1" {
		t.Fatalf("request id header = %q", got)
	}
	want := map[attribute.Key]string{
		"enduser.id":       userID.String(),
		"request.id":       "req-1",
		"request.language": "en",
	}
	found := map[attribute.Key]string{}
	for _, kv := range spans[0].Attributes() {
		found[kv.Key] = kv.Value.Emit()
	}
	for k, v := range want {
		if found[k] != v {
			t.Fatalf("attribute %s = %q, want %q (all %v)", k, found[k], v, found)
		}
	}
}

func TestAttachTraceContextGeneratesIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get(headerTraceID) == "" || w.Header().Get(headerRequestID) == "" {
		t.Fatalf("missing id headers: %v", w.Header())
	}
}
