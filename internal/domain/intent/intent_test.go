package intent

import (
	"testing"

	"github.com/nightcity/oracle/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		want  Intent
	}{
		{"When did the Fourth Corporate War start?", Timeline},
		{"what YEAR was the datakrash", Timeline},
		{"show me the timeline", Timeline},
		{"Who is Johnny Silverhand?", Person},
		{"which person runs Arasaka", Person},
		{"Where is Watson?", Location},
		{"location of the Afterlife", Location},
		{"what is a choomba", General},
		{"", General},
		{"   ", General},
		{"\x00\xff broken utf8", General},
		// precedence: timeline beats person beats location
		{"who was alive when the war started", Timeline},
		{"who lives where", Person},
		// substring match, not word match
		{"whoever", Person},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			if got := Classify(tc.query); got != tc.want {
				t.Errorf("Classify(%q) = %q, want %q", tc.query, got, tc.want)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	q := "Where was Saburo Arasaka when the bomb went off?"
	first := Classify(q)
	for range 10 {
		if got := Classify(q); got != first {
			t.Fatalf("Classify not deterministic: %q vs %q", got, first)
		}
	}
}

func TestCorpora(t *testing.T) {
	tests := []struct {
		intent Intent
		want   []domain.CorpusName
	}{
		{Timeline, []domain.CorpusName{domain.CorpusTimeline}},
		{Person, []domain.CorpusName{domain.CorpusLore}},
		{Location, []domain.CorpusName{domain.CorpusLore}},
		{General, []domain.CorpusName{domain.CorpusLore, domain.CorpusSlang}},
	}
	for _, tc := range tests {
		got := tc.intent.Corpora()
		if len(got) != len(tc.want) {
			t.Fatalf("%s: Corpora() = %v, want %v", tc.intent, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: Corpora()[%d] = %q, want %q", tc.intent, i, got[i], tc.want[i])
			}
		}
	}
}

func TestMatchesType(t *testing.T) {
	tests := []struct {
		intent Intent
		tag    string
		want   bool
	}{
		{Person, domain.TypeCharacter, true},
		{Person, domain.TypeLocation, false},
		{Location, domain.TypeLocation, true},
		{Location, domain.TypeCharacter, false},
		{Timeline, domain.TypeTimeline, true},
		{Timeline, domain.TypeConcept, false},
		{General, domain.TypeCharacter, false},
		{General, domain.TypeConcept, false},
		{General, "", false},
	}
	for _, tc := range tests {
		if got := tc.intent.MatchesType(tc.tag); got != tc.want {
			t.Errorf("%s.MatchesType(%q) = %v, want %v", tc.intent, tc.tag, got, tc.want)
		}
	}
}

func TestIsValid(t *testing.T) {
	for _, i := range []Intent{Timeline, Person, Location, General} {
		if !i.IsValid() {
			t.Errorf("%q should be valid", i)
		}
	}
	if Intent("weather").IsValid() {
		t.Error("unknown intent reported valid")
	}
}
