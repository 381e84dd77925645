package similarity

import (
	"context"
	"testing"
)

func TestLexicalScore(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "python", "python", 1.0},
		{"case insensitive", "Python", "python", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "python", "", 0.0},
		{"disjoint", "abc", "xyz", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Lexical{}.Score(context.Background(), tt.a, tt.b)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if got != tt.want {
				t.Errorf("Score(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLexicalScoreBounded(t *testing.T) {
	pairs := [][2]string{
		{"Python is a high-level programming language", "Python is a high-level programming language."},
		{"I don't know", "Python is a high-level programming language."},
		{"a", "aaaaaaaaaaaaaaaaaaaa"},
		{"совершенно другой текст", "another text entirely"},
	}
	for _, p := range pairs {
		got, err := Lexical{}.Score(context.Background(), p[0], p[1])
		if err != nil {
			t.Fatalf("Score: %v", err)
		}
		if got < 0 || got > 1 {
			t.Errorf("Score(%q, %q) = %v, out of [0,1]", p[0], p[1], got)
		}
	}
}

func TestLexicalScoreNearMatch(t *testing.T) {
	got, _ := Lexical{}.Score(context.Background(),
		"Python is a high-level programming language",
		"Python is a high-level programming language.")
	if got < 0.9 {
		t.Errorf("near-identical texts scored %v, want >= 0.9", got)
	}

	far, _ := Lexical{}.Score(context.Background(),
		"I don't know",
		"Python is a high-level programming language.")
	if far >= got {
		t.Errorf("unrelated answer scored %v, want below %v", far, got)
	}
}

func TestLCSLength(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"abcde", "ace", 3},
		{"abc", "abc", 3},
		{"abc", "def", 0},
		{"", "abc", 0},
		{"aggtab", "gxtxayb", 4},
	}
	for _, tt := range tests {
		if got := lcsLength([]rune(tt.a), []rune(tt.b)); got != tt.want {
			t.Errorf("lcsLength(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosine(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosine = %v, want %v", got, tt.want)
			}
		})
	}
}
