package tokenizer

import "testing"

func TestDefaultCountsWordsAsSingleTokens(t *testing.T) {
	c := Default()
	if got := c.Count("hello world"); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}
}

func TestDefaultCountsEachHanRuneSeparately(t *testing.T) {
	c := Default()
	if got := c.Count("你好"); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}
}

func TestDefaultCountsPunctuationSeparately(t *testing.T) {
	c := Default()
	if got := c.Count("hi, there!"); got != 4 {
		t.Fatalf("Count() = %d, want 4", got)
	}
}

func TestDefaultCountsEmptyStringAsZero(t *testing.T) {
	c := Default()
	if got := c.Count(""); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
}
