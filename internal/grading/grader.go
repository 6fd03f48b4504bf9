package grading

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hiredeck/hiredeck-backend/internal/judge"
	"github.com/hiredeck/hiredeck-backend/internal/model"
	"github.com/rs/zerolog"
)

// FullScore is awarded for a correct answer of any question type.
const FullScore = 10

// CodeRunner executes candidate source code remotely. *judge.Client
// satisfies it.
type CodeRunner interface {
	Submit(ctx context.Context, source, stdin string) (*judge.Result, error)
}

// Grader maps a question plus a submitted response to a score. Grading is
// total: malformed input of any kind scores 0, it never panics and never
// returns an error.
type Grader struct {
	runner CodeRunner
	// caseInsensitive selects the free-text comparison policy. The
	// comparison always trims surrounding whitespace on both sides.
	caseInsensitive bool
	log             zerolog.Logger
}

// NewGrader creates a Grader. runner may be nil when no judge is
// configured; code questions then score 0.
func NewGrader(runner CodeRunner, caseInsensitive bool, log zerolog.Logger) *Grader {
	return &Grader{
		runner:          runner,
		caseInsensitive: caseInsensitive,
		log:             log.With().Str("component", "grader").Logger(),
	}
}

// Grade scores one response against the question's expected answer.
func (g *Grader) Grade(ctx context.Context, q *model.Question, response string) (score int) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Interface("panic", r).Int64("question_id", q.ID).Msg("Grading panic recovered, scoring 0")
			score = 0
		}
	}()

	switch q.QuestionType {
	case model.QuestionTypeFreeText:
		return g.gradeFreeText(q.CorrectAnswer, response)
	case model.QuestionTypeSingleChoice:
		return gradeSingleChoice(q.CorrectAnswer, response)
	case model.QuestionTypeMultipleChoice:
		return gradeMultipleChoice(q.CorrectAnswer, response)
	case model.QuestionTypeCode:
		return g.gradeCode(ctx, q, response)
	default:
		return 0
	}
}

func (g *Grader) gradeFreeText(expected, got string) int {
	expected = strings.TrimSpace(expected)
	got = strings.TrimSpace(got)
	if g.caseInsensitive {
		if strings.EqualFold(expected, got) {
			return FullScore
		}
		return 0
	}
	if expected == got {
		return FullScore
	}
	return 0
}

func gradeSingleChoice(expected, got string) int {
	want, err := parseChoiceID(expected)
	if err != nil {
		return 0
	}
	have, err := parseChoiceID(got)
	if err != nil {
		return 0
	}
	if want == have {
		return FullScore
	}
	return 0
}

func gradeMultipleChoice(expected, got string) int {
	want, err := parseChoiceSet(expected)
	if err != nil {
		return 0
	}
	have, err := parseChoiceSet(got)
	if err != nil {
		return 0
	}
	if len(want) != len(have) {
		return 0
	}
	for id := range want {
		if _, ok := have[id]; !ok {
			return 0
		}
	}
	return FullScore
}

func (g *Grader) gradeCode(ctx context.Context, q *model.Question, source string) int {
	if g.runner == nil {
		g.log.Warn().Int64("question_id", q.ID).Msg("No judge configured, scoring code answer 0")
		return 0
	}

	result, err := g.runner.Submit(ctx, source, q.Stdin)
	if err != nil {
		// Judge failures are contained here: the candidate never sees
		// them, the answer just scores 0.
		g.log.Warn().Err(err).Int64("question_id", q.ID).Msg("Judge submission failed, scoring 0")
		return 0
	}

	if strings.TrimSpace(result.Stderr) != "" {
		return 0
	}
	if strings.TrimSpace(result.Stdout) == strings.TrimSpace(q.CorrectAnswer) {
		return FullScore
	}
	return 0
}

// parseChoiceID accepts a bare integer or a single-element JSON array.
func parseChoiceID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return 0, err
	}
	if len(ids) != 1 {
		return 0, strconv.ErrSyntax
	}
	return ids[0], nil
}

// parseChoiceSet parses a JSON array of choice ids into a set; order and
// duplicates are irrelevant.
func parseChoiceSet(raw string) (map[int64]struct{}, error) {
	var ids []int64
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &ids); err != nil {
		return nil, err
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
