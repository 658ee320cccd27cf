package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestGinContext(w *httptest.ResponseRecorder) (*gin.Context, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	c, engine := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	return c, engine
}

func TestRecentLogsOrderAndLimit(t *testing.T) {
	svc := NewMonitoringService()

	for i := 0; i < 5; i++ {
		svc.record(RequestLogEntry{
			RequestID:  string(rune('a' + i)),
			Timestamp:  time.Now(),
			Path:       "/api/v1/predict",
			Method:     "POST",
			StatusCode: 200,
		})
	}

	// 新しい順で返ること
	logs := svc.RecentLogs(3)
	if len(logs) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(logs))
	}
	if logs[0].RequestID != "e" || logs[2].RequestID != "c" {
		t.Errorf("Expected newest-first order, got %s..%s", logs[0].RequestID, logs[2].RequestID)
	}

	// limitが件数を超える場合は全件
	if got := len(svc.RecentLogs(100)); got != 5 {
		t.Errorf("Expected 5 entries, got %d", got)
	}
}

func TestRecordCapsHistory(t *testing.T) {
	svc := NewMonitoringService()

	for i := 0; i < maxLogEntries+50; i++ {
		svc.record(RequestLogEntry{StatusCode: i})
	}

	logs := svc.RecentLogs(0)
	if len(logs) != maxLogEntries {
		t.Fatalf("Expected history capped at %d, got %d", maxLogEntries, len(logs))
	}
	// 最新のエントリが残っていること
	if logs[0].StatusCode != maxLogEntries+49 {
		t.Errorf("Expected newest entry to survive, got %d", logs[0].StatusCode)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	// バースト2・補充なし相当の厳しい設定
	handler := RateLimitMiddleware(0.001, 2)

	allowed := 0
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		c, _ := newTestGinContext(w)
		handler(c)
		if w.Code != http.StatusTooManyRequests {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("Expected 2 requests within burst, got %d", allowed)
	}
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	handler := RateLimitMiddleware(0, 0)

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		c, _ := newTestGinContext(w)
		handler(c)
		if w.Code == http.StatusTooManyRequests {
			t.Fatal("disabled limiter must never reject")
		}
	}
}
