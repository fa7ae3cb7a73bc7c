package policy

import (
	"strings"
	"testing"
)

func TestForLogMasksContactDetails(t *testing.T) {
	out := ForLog("remind me to email sam@example.com and call +1 (555) 123-9876 in 5 minutes")
	for _, marker := range []string{"[email]", "[phone]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
	if strings.Contains(out, "sam@example.com") || strings.Contains(out, "123-9876") {
		t.Fatalf("output still contains contact details: %q", out)
	}
	if !strings.HasSuffix(out, "in 5 minutes") {
		t.Fatalf("offset clause was altered: %q", out)
	}
}

func TestForLogMasksCards(t *testing.T) {
	out := ForLog("my card is 4242 4242 4242 4242")
	if !strings.Contains(out, "[card]") {
		t.Fatalf("output missing card marker: %q", out)
	}
}

func TestForLogKeepsCommands(t *testing.T) {
	for _, in := range []string{"cancel reminder 12", "remind me to stretch in 30 minutes", "open calculator"} {
		if got := ForLog(in); got != in {
			t.Fatalf("ForLog(%q) = %q, want unchanged", in, got)
		}
	}
}
