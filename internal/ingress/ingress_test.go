package ingress

import "testing"

func TestNormalizeSanitizesFields(t *testing.T) {
	body := webhookBody{
		UserID: "<script>bad()</script>user-1",
		Text:   "hello <script>x</script>world",
		History: []historyEntry{
			{Role: "user", Content: "<script>y</script>hi"},
			{Role: "system", Content: "dropped"},
		},
	}
	msg, history := normalize(body)

	if msg.UserID != "user-1" {
		t.Fatalf("expected sanitized user id, got %q", msg.UserID)
	}
	if msg.Text != "hello world" {
		t.Fatalf("expected sanitized text, got %q", msg.Text)
	}
	if len(history) != 1 {
		t.Fatalf("expected system-role history entry dropped, got %d entries", len(history))
	}
	if history[0].Content != "hi" {
		t.Fatalf("expected sanitized history content, got %q", history[0].Content)
	}
}

func TestNormalizeKeepsAllowedHistoryRoles(t *testing.T) {
	body := webhookBody{
		Text: "hi",
		History: []historyEntry{
			{Role: "user", Content: "a"},
			{Role: "assistant", Content: "b"},
		},
	}
	_, history := normalize(body)
	if len(history) != 2 {
		t.Fatalf("expected both user and assistant entries kept, got %d", len(history))
	}
}
