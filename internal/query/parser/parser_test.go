package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/errors"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		kinds []Kind
		args  [][]string
	}{
		{"wordscore", "WORDSCORE epic", []Kind{KindWordScore}, [][]string{{"epic"}}},
		{"case insensitive", "wordScore Epic", []Kind{KindWordScore}, [][]string{{"Epic"}}},
		{"review takes rest of line", "REVIEWSCORE a thrilling WORDSCORE", []Kind{KindReviewScore}, [][]string{{"a", "thrilling", "WORDSCORE"}}},
		{"empty review", "REVIEWSCORE", []Kind{KindReviewScore}, [][]string{{}}},
		{"threshold", "WORDSABOVE 3.8", []Kind{KindWordsAbove}, [][]string{{"3.8"}}},
		{"several per line", "WORDSCORE epic WORDSABOVE 3 WORDSCORE good", []Kind{KindWordScore, KindWordsAbove, KindWordScore}, [][]string{{"epic"}, {"3"}, {"good"}}},
		{"unknown then valid", "FOO WORDSCORE epic", []Kind{KindUnknown, KindWordScore}, [][]string{nil, {"epic"}}},
		{"bad threshold is read again", "WORDSABOVE WORDSCORE epic", []Kind{KindWordsAbove, KindWordScore}, [][]string{{"WORDSCORE"}, {"epic"}}},
		{"bad threshold then unknown", "WORDSABOVE high", []Kind{KindWordsAbove, KindUnknown}, [][]string{{"high"}, nil}},
		{"blank", "   ", []Kind{}, [][]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := ParseLine(tt.line, 1)
			if len(cmds) != len(tt.kinds) {
				t.Fatalf("got %d commands, want %d: %+v", len(cmds), len(tt.kinds), cmds)
			}
			for i, cmd := range cmds {
				if cmd.Kind != tt.kinds[i] {
					t.Errorf("cmd %d kind = %v, want %v", i, cmd.Kind, tt.kinds[i])
				}
				if len(cmd.Args) == 0 && len(tt.args[i]) == 0 {
					continue
				}
				if !reflect.DeepEqual(cmd.Args, tt.args[i]) {
					t.Errorf("cmd %d args = %#v, want %#v", i, cmd.Args, tt.args[i])
				}
			}
		})
	}
}

func TestParseLineMissingArgument(t *testing.T) {
	for _, line := range []string{"WORDSCORE", "wordsabove", "WORDSCORE epic WORDSABOVE"} {
		cmds := ParseLine(line, 3)
		last := cmds[len(cmds)-1]
		if !errors.Is(last.Err, apperrors.ErrMissingArgument) {
			t.Errorf("%q: err = %v, want ErrMissingArgument", line, last.Err)
		}
		if last.Line != 3 {
			t.Errorf("%q: line = %d, want 3", line, last.Line)
		}
	}
}

func TestParseLineUnknownCommand(t *testing.T) {
	cmds := ParseLine("HELLO world", 1)
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want one per unknown token", len(cmds))
	}
	for _, cmd := range cmds {
		if !errors.Is(cmd.Err, apperrors.ErrUnknownCommand) {
			t.Errorf("%q: err = %v, want ErrUnknownCommand", cmd.Name, cmd.Err)
		}
	}
}

func TestParseLineMalformedThreshold(t *testing.T) {
	for _, arg := range []string{"high", "NaN", "1_0", "0x1p2"} {
		cmds := ParseLine("WORDSABOVE "+arg, 1)
		if len(cmds) != 2 {
			t.Fatalf("%q: got %d commands, want 2", arg, len(cmds))
		}
		if !errors.Is(cmds[0].Err, apperrors.ErrMalformedArgument) || cmds[0].Args[0] != arg {
			t.Errorf("%q: first command = %+v", arg, cmds[0])
		}
		if cmds[1].Name != arg {
			t.Errorf("%q: token not read again, got %+v", arg, cmds[1])
		}
	}
	cmds := ParseLine("WORDSABOVE -Infinity", 1)
	if len(cmds) != 1 || cmds[0].Err != nil {
		t.Errorf("-Infinity: %+v", cmds)
	}
}

func TestArgumentsDoNotSpanLines(t *testing.T) {
	cmds := Parse("WORDSCORE\nepic\n")
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want 2", len(cmds))
	}
	if !errors.Is(cmds[0].Err, apperrors.ErrMissingArgument) {
		t.Errorf("first command err = %v", cmds[0].Err)
	}
	if cmds[1].Kind != KindUnknown || cmds[1].Line != 2 {
		t.Errorf("second command = %+v", cmds[1])
	}
}

func TestParseReaderLineNumbers(t *testing.T) {
	cmds, err := ParseReader(strings.NewReader("WORDSCORE a\n\nWORDSABOVE 1 REVIEWSCORE x y\n"))
	if err != nil {
		t.Fatal(err)
	}
	lines := make([]int, 0, len(cmds))
	for _, c := range cmds {
		lines = append(lines, c.Line)
	}
	if !reflect.DeepEqual(lines, []int{1, 3, 3}) {
		t.Errorf("lines = %v", lines)
	}
}
