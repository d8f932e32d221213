package obslog

import "testing"

func TestLoggerIsSingleton(t *testing.T) {
	a := Logger()
	b := Logger()
	if a != b {
		t.Fatal("expected Logger() to return the same instance across calls")
	}
}

func TestHelpersDoNotPanic(t *testing.T) {
	Infof("starting %s", "test")
	Warnf("slow call: %dms", 42)
	Errorf("failed: %v", "boom")
}
