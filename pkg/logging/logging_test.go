package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestContextRoundTrip(t *testing.T) {
	base := zap.NewNop()
	reqLogger := zap.NewExample()

	ctx := WithContext(context.Background(), reqLogger)
	if got := FromContext(ctx, base); got != reqLogger {
		t.Errorf("Expected request logger from context")
	}
	if got := FromContext(context.Background(), base); got != base {
		t.Errorf("Expected base logger when context has none")
	}
	if got := FromContext(context.Background(), nil); got == nil {
		t.Errorf("Expected a no-op logger when base is nil")
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	logger, err := New("not-a-level", "json")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if logger.Core().Enabled(zap.DebugLevel) {
		t.Errorf("Expected debug to be disabled at the fallback info level")
	}
}
