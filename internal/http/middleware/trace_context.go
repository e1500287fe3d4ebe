package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/stepwise-backend/internal/pkg/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext assigns trace and request ids, echoes them back as
// headers, and tags the active span with the caller once auth has run.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		traceID := strings.TrimSpace(c.GetHeader(headerTraceID))
		if sc := trace.SpanContextFromContext(ctx); traceID == "" && sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(ctx, &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
		}))
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)

		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		attrs := []attribute.KeyValue{attribute.String("request.id", reqID)}
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
			if rd.UserID != uuid.Nil {
				attrs = append(attrs,
					attribute.String("enduser.id", rd.UserID.String()),
					attribute.Bool("enduser.premium", rd.IsPremium),
				)
			}
			if rd.Language != "" {
				attrs = append(attrs, attribute.String("request.language", rd.Language))
			}
		}
		span.SetAttributes(attrs...)
	}
}
