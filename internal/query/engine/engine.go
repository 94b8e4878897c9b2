// Package engine executes parsed score commands against a built index and
// renders their results. Recoverable problems (missing or malformed
// arguments, unknown commands) become inline diagnostics in the output.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/query/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/metrics"
)

// SourceNotFound is returned in place of any output when the command source
// cannot be read.
const SourceNotFound = "file not found"

// Index is the read-only view of a score index the engine needs.
type Index interface {
	Average(word string) (float64, bool)
	CountAbove(threshold float64) int
}

// Outcome classifies a Result for metrics and analytics.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeNoScore    Outcome = "no_score"
	OutcomeDiagnostic Outcome = "diagnostic"
)

// Result is the rendered outcome of one command. Err is non-nil for
// diagnostics only.
type Result struct {
	Command parser.Command
	Output  string
	Outcome Outcome
	Err     error
}

// Engine answers commands against one immutable index. It is safe for
// concurrent use.
type Engine struct {
	index   Index
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Engine. m may be nil.
func New(idx Index, m *metrics.Metrics) *Engine {
	return &Engine{
		index:   idx,
		metrics: m,
		logger:  slog.Default().With("component", "query-engine"),
	}
}

// Execute runs a single command.
func (e *Engine) Execute(cmd parser.Command) Result {
	start := time.Now()
	var res Result
	switch {
	case cmd.Err != nil:
		res = diagnostic(cmd, cmd.Err)
	case cmd.Kind == parser.KindWordScore:
		res = e.wordScore(cmd)
	case cmd.Kind == parser.KindReviewScore:
		res = e.reviewScore(cmd)
	case cmd.Kind == parser.KindWordsAbove:
		res = e.wordsAbove(cmd)
	default:
		res = diagnostic(cmd, fmt.Errorf("%q: %w", cmd.Name, apperrors.ErrUnknownCommand))
	}
	if res.Err != nil {
		e.logger.Debug("command diagnostic", "line", cmd.Line, "command", cmd.Name, "error", res.Err)
	}
	if e.metrics != nil {
		e.metrics.QueriesTotal.WithLabelValues(cmd.Kind.String(), string(res.Outcome)).Inc()
		e.metrics.QueryLatency.WithLabelValues(cmd.Kind.String()).Observe(time.Since(start).Seconds())
	}
	return res
}

func (e *Engine) wordScore(cmd parser.Command) Result {
	word := cmd.Args[0]
	avg, ok := e.index.Average(word)
	if !ok {
		return Result{Command: cmd, Output: "WORD " + word + " has no score", Outcome: OutcomeNoScore}
	}
	return Result{Command: cmd, Output: "WORD " + word + " has score " + FormatScore(avg), Outcome: OutcomeOK}
}

// reviewScore averages the averages of the review's indexed words. Unknown
// words are echoed but do not contribute.
func (e *Engine) reviewScore(cmd parser.Command) Result {
	review := "REVIEW '" + strings.Join(cmd.Args, " ") + "'"
	var sum float64
	known := 0
	for _, word := range cmd.Args {
		if avg, ok := e.index.Average(word); ok {
			sum += avg
			known++
		}
	}
	if known == 0 {
		return Result{Command: cmd, Output: review + " has no score", Outcome: OutcomeNoScore}
	}
	return Result{Command: cmd, Output: review + " has score " + FormatScore(sum/float64(known)), Outcome: OutcomeOK}
}

func (e *Engine) wordsAbove(cmd parser.Command) Result {
	threshold, err := ParseThreshold(cmd.Args[0])
	if err != nil {
		return diagnostic(cmd, err)
	}
	count := e.index.CountAbove(threshold)
	return Result{
		Command: cmd,
		Output:  strconv.Itoa(count) + " words with score above " + FormatScore(threshold),
		Outcome: OutcomeOK,
	}
}

// ParseThreshold parses a WORDSABOVE argument the way the command parser
// does.
func ParseThreshold(arg string) (float64, error) {
	return parser.ParseThreshold(arg)
}

func diagnostic(cmd parser.Command, err error) Result {
	return Result{Command: cmd, Output: diagnosticText(cmd, err), Outcome: OutcomeDiagnostic, Err: err}
}

func diagnosticText(cmd parser.Command, err error) string {
	switch {
	case errors.Is(err, apperrors.ErrMissingArgument):
		return "no valid argument found for " + displayName(cmd.Kind)
	case errors.Is(err, apperrors.ErrMalformedArgument):
		arg := ""
		if len(cmd.Args) > 0 {
			arg = cmd.Args[0]
		}
		return "invalid argument '" + arg + "' for " + displayName(cmd.Kind)
	default:
		return "invalid command"
	}
}

func displayName(k parser.Kind) string {
	switch k {
	case parser.KindWordScore:
		return "WordScore"
	case parser.KindReviewScore:
		return "ReviewScore"
	case parser.KindWordsAbove:
		return "WordsAbove"
	default:
		return "command"
	}
}

// Classify returns the Outcome Execute would report for cmd without
// rendering it or recording metrics.
func (e *Engine) Classify(cmd parser.Command) Outcome {
	switch {
	case cmd.Err != nil:
		return OutcomeDiagnostic
	case cmd.Kind == parser.KindWordScore:
		if _, ok := e.index.Average(cmd.Args[0]); ok {
			return OutcomeOK
		}
		return OutcomeNoScore
	case cmd.Kind == parser.KindReviewScore:
		for _, word := range cmd.Args {
			if _, ok := e.index.Average(word); ok {
				return OutcomeOK
			}
		}
		return OutcomeNoScore
	case cmd.Kind == parser.KindWordsAbove:
		if _, err := ParseThreshold(cmd.Args[0]); err != nil {
			return OutcomeDiagnostic
		}
		return OutcomeOK
	default:
		return OutcomeDiagnostic
	}
}

// ExecuteAll runs commands in order.
func (e *Engine) ExecuteAll(cmds []parser.Command) []Result {
	results := make([]Result, 0, len(cmds))
	for _, cmd := range cmds {
		results = append(results, e.Execute(cmd))
	}
	return results
}

// Join concatenates result outputs in order, one newline-terminated line
// per command.
func Join(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Output)
		b.WriteByte('\n')
	}
	return b.String()
}

// Results parses and executes every command in text and returns the
// aggregate output.
func (e *Engine) Results(text string) string {
	return Join(e.ExecuteAll(parser.Parse(text)))
}

// ResultsFrom is Results over a reader. A read failure discards any partial
// output and wraps ErrSourceUnavailable.
func (e *Engine) ResultsFrom(r io.Reader) (string, error) {
	cmds, err := parser.ParseReader(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}
	return Join(e.ExecuteAll(cmds)), nil
}

// RunFile executes the command file at path. If the file cannot be read the
// only output is SourceNotFound.
func (e *Engine) RunFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		e.logger.Error("opening command file", "path", path, "error", err)
		return SourceNotFound
	}
	defer f.Close()
	out, err := e.ResultsFrom(f)
	if err != nil {
		e.logger.Error("reading command file", "path", path, "error", err)
		return SourceNotFound
	}
	return out
}
