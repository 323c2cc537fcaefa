package sanitize

import "testing"

func TestTextStripsScriptTags(t *testing.T) {
	got := Text(`hello <script>alert(1)</script> world`)
	if got != "hello  world" {
		t.Fatalf("expected script tag stripped, got %q", got)
	}
}

func TestTextKeepsAllowedTags(t *testing.T) {
	got := Text(`<b>bold</b> and <a href="https://example.com">link</a>`)
	if got == "" {
		t.Fatal("expected allowed tags to survive sanitization")
	}
}

func TestTextCapsLength(t *testing.T) {
	long := make([]byte, MaxFieldLen+100)
	for i := range long {
		long[i] = 'a'
	}
	got := Text(string(long))
	if len(got) > MaxFieldLen {
		t.Fatalf("expected length capped to %d, got %d", MaxFieldLen, len(got))
	}
}

func TestMapSanitizesAllValues(t *testing.T) {
	m := Map(map[string]string{"k": "<script>bad()</script>clean"})
	if m["k"] != "clean" {
		t.Fatalf("expected sanitized map value, got %q", m["k"])
	}
}
