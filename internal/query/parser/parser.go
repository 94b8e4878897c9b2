// Package parser splits command text into WORDSCORE, REVIEWSCORE and
// WORDSABOVE commands. Several commands may share a line; none reads past
// the end of its line.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/scoring/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/errors"
)

// Kind identifies the command a token selected.
type Kind int

const (
	KindUnknown Kind = iota
	KindWordScore
	KindReviewScore
	KindWordsAbove
)

func (k Kind) String() string {
	switch k {
	case KindWordScore:
		return "WORDSCORE"
	case KindReviewScore:
		return "REVIEWSCORE"
	case KindWordsAbove:
		return "WORDSABOVE"
	default:
		return "UNKNOWN"
	}
}

// Command is one parsed command. Err is set when the command could not be
// completed from its line (missing argument, unknown name); the engine turns
// it into an inline diagnostic.
type Command struct {
	Kind Kind
	Name string
	Args []string
	Line int
	Err  error
}

// maxLineBytes bounds a single command line.
const maxLineBytes = 1024 * 1024

// Parse splits text into commands in input order.
func Parse(text string) []Command {
	cmds, _ := ParseReader(strings.NewReader(text))
	return cmds
}

// ParseReader reads command lines from r. Only read errors are returned;
// malformed commands are reported through Command.Err.
func ParseReader(r io.Reader) ([]Command, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxLineBytes)
	cmds := make([]Command, 0)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		cmds = append(cmds, ParseLine(scanner.Text(), lineNo)...)
	}
	if err := scanner.Err(); err != nil {
		return cmds, fmt.Errorf("reading commands: %w", err)
	}
	return cmds, nil
}

// ParseLine parses the commands on a single line. A command never takes its
// arguments from the following line.
func ParseLine(line string, lineNo int) []Command {
	words := strings.Fields(line)
	cmds := make([]Command, 0, 1)
	for i := 0; i < len(words); {
		cmd := Command{Name: words[i], Line: lineNo}
		switch strings.ToUpper(words[i]) {
		case "WORDSCORE":
			cmd.Kind = KindWordScore
			i = takeOne(&cmd, words, i+1)
		case "WORDSABOVE":
			cmd.Kind = KindWordsAbove
			i = takeThreshold(&cmd, words, i+1)
		case "REVIEWSCORE":
			cmd.Kind = KindReviewScore
			cmd.Args = append([]string{}, words[i+1:]...)
			i = len(words)
		default:
			cmd.Kind = KindUnknown
			cmd.Err = fmt.Errorf("%q: %w", words[i], apperrors.ErrUnknownCommand)
			i++
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func takeOne(cmd *Command, words []string, next int) int {
	if next >= len(words) {
		cmd.Err = fmt.Errorf("%s: %w", cmd.Kind, apperrors.ErrMissingArgument)
		return next
	}
	cmd.Args = []string{words[next]}
	return next + 1
}

// takeThreshold is takeOne for numeric arguments. A token that is not a
// threshold is reported against the command but left in place, so it is
// read again as the next command name.
func takeThreshold(cmd *Command, words []string, next int) int {
	if next >= len(words) {
		return takeOne(cmd, words, next)
	}
	cmd.Args = []string{words[next]}
	if _, err := ParseThreshold(words[next]); err != nil {
		cmd.Err = err
		return next
	}
	return next + 1
}

// ParseThreshold parses a WORDSABOVE argument. NaN is rejected since it
// orders against nothing.
func ParseThreshold(arg string) (float64, error) {
	threshold, err := tokenizer.ParseNumber(arg)
	if err != nil || math.IsNaN(threshold) {
		return 0, fmt.Errorf("threshold %q: %w", arg, apperrors.ErrMalformedArgument)
	}
	return threshold, nil
}
