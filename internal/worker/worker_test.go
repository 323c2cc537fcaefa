package worker

import "testing"

func TestConsumerNamesAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for i := 1; i <= 5; i++ {
		name := consumerName(i)
		if seen[name] {
			t.Fatalf("consumer name %q collided", name)
		}
		seen[name] = true
	}
}

func TestBackoffGrowsExponentially(t *testing.T) {
	if backoff(0) >= backoff(1) {
		t.Fatal("expected backoff to increase with attempt")
	}
	if backoff(1) >= backoff(2) {
		t.Fatal("expected backoff to increase with attempt")
	}
}
