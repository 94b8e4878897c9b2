package tokenizer

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/errors"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantScore float64
		wantWords []string
	}{
		{"basic", "4.0 epic amazing story", 4.0, []string{"epic", "amazing", "story"}},
		{"lowercases", "3 Epic STORY", 3, []string{"epic", "story"}},
		{"drops short words", "2.5 it is an ok film", 2.5, []string{"film"}},
		{"drops excluded words", "1 the movie and she but they you", 1, []string{"movie"}},
		{"excluded words any case", "1 The AND But", 1, []string{}},
		{"score only", "4", 4, []string{}},
		{"extra whitespace", "  0.5\t\tslow   plot  ", 0.5, []string{"slow", "plot"}},
		{"negative score", "-1 awful", -1, []string{"awful"}},
		{"punctuation kept", "3 great, film.", 3, []string{"great,", "film."}},
		{"repeated words kept", "2 dull dull", 2, []string{"dull", "dull"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseLine(tt.line)
			if err != nil {
				t.Fatalf("ParseLine(%q): %v", tt.line, err)
			}
			if rec.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", rec.Score, tt.wantScore)
			}
			if !reflect.DeepEqual(rec.Words, tt.wantWords) {
				t.Errorf("words = %#v, want %#v", rec.Words, tt.wantWords)
			}
		})
	}
}

func TestParseLineMalformed(t *testing.T) {
	for _, line := range []string{"", "   ", "great movie 4", "four stars", "NaN good", "Inf good", "1_0 great", "0x1p2 movie", "-0X1P-2 plot"} {
		_, err := ParseLine(line)
		if !errors.Is(err, apperrors.ErrMalformedLine) {
			t.Errorf("ParseLine(%q) err = %v, want ErrMalformedLine", line, err)
		}
	}
}

func TestParseNumber(t *testing.T) {
	valid := map[string]float64{
		"4":      4,
		"4.0":    4,
		"-0.5":   -0.5,
		"+2.25":  2.25,
		"2e1":    20,
		".5":     0.5,
		"1e-2":   0.01,
		"0.10":   0.1,
		"010":    10,
		"-1E+1":  -10,
		"123456": 123456,
	}
	for in, want := range valid {
		got, err := ParseNumber(in)
		if err != nil || got != want {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "1_0", "1_000.5", "0x1p2", "0X10", "-0x1p-2", "+0x1", "four", "4.0.0", "1e"} {
		if got, err := ParseNumber(in); err == nil {
			t.Errorf("ParseNumber(%q) = %v, want error", in, got)
		}
	}
}

func TestIsExcluded(t *testing.T) {
	cases := map[string]bool{
		"a":    true,
		"ok":   true,
		"the":  true,
		"you":  true,
		"but":  true,
		"fun":  false,
		"epic": false,
		"été":  false,
		"né":   true,
	}
	for word, want := range cases {
		if got := IsExcluded(word); got != want {
			t.Errorf("IsExcluded(%q) = %v, want %v", word, got, want)
		}
	}
}

func TestExcludedWordsIsCopy(t *testing.T) {
	words := ExcludedWords()
	if len(words) != 6 {
		t.Fatalf("len = %d, want 6", len(words))
	}
	words[0] = "epic"
	if IsExcluded("epic") {
		t.Fatal("mutating the returned slice changed the exclusion list")
	}
}

func BenchmarkParseLine(b *testing.B) {
	line := "3.5 a thrilling performance with gorgeous scenery and the best score of the year"
	b.ReportAllocs()
	b.SetBytes(int64(len(line)))
	for i := 0; i < b.N; i++ {
		_, _ = ParseLine(line)
	}
}
