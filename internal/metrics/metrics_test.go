package metrics

import "testing"

func TestScopeHelpers(t *testing.T) {
	if AgentScope("abc") != "abc" {
		t.Fatal("expected agent scope to pass through the id unchanged")
	}
	if GlobalScope() != "global" {
		t.Fatal("expected global scope to be the fixed string")
	}
}

func TestCounterKeyNamespacing(t *testing.T) {
	a := counterKey("agent-1", "messages")
	b := counterKey("agent-2", "messages")
	if a == b {
		t.Fatal("expected counter keys to be scoped per agent")
	}
	if counterKey("agent-1", "messages") == counterKey("agent-1", "tokens") {
		t.Fatal("expected counter keys to be scoped per metric name")
	}
}
