package voice

import "testing"

func TestSpeakableText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "keeps plain sentences",
			in:   "Reminder: take medicine",
			want: "Reminder: take medicine",
		},
		{
			name: "drops emoji and markdown markers",
			in:   "Sure \U0001F60A **let's** do this",
			want: "Sure let's do this",
		},
		{
			name: "keeps link label and removes url",
			in:   "Read [the docs](https://example.com/docs) first.",
			want: "Read the docs first.",
		},
		{
			name: "collapses newlines",
			in:   "Reminder 1: a at 09:05 AM on January 10\nReminder 2: b",
			want: "Reminder 1: a at 09:05 AM on January 10 Reminder 2: b",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := speakableText(tc.in)
			if got != tc.want {
				t.Fatalf("speakableText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
