package query

import (
	"errors"
	"testing"
)

func TestBuild(t *testing.T) {
	got, err := Build([]string{"ransomware", "phishing"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := "(ransomware OR phishing) -is:retweet (lang:es OR lang:en)"
	if got != want {
		t.Errorf("Build = %q, want %q", got, want)
	}
}

func TestBuildTrimsAndSkipsEmpty(t *testing.T) {
	got, err := Build([]string{"  malware ", "", "   ", "breach"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := "(malware OR breach) -is:retweet (lang:es OR lang:en)"
	if got != want {
		t.Errorf("Build = %q, want %q", got, want)
	}
}

func TestBuildNoKeywords(t *testing.T) {
	for _, keywords := range [][]string{nil, {}, {"", "  "}} {
		if _, err := Build(keywords); !errors.Is(err, ErrNoKeywords) {
			t.Errorf("Build(%v) error = %v, want ErrNoKeywords", keywords, err)
		}
	}
}
