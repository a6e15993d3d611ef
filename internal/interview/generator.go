package interview

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pavelanni/mockinterview/internal/llm"
	"github.com/pavelanni/mockinterview/internal/llm/prompts"
	"github.com/pavelanni/mockinterview/internal/model"
)

const (
	questionMaxTokens = 600
	evalMaxTokens     = 700
	temperature       = 0.2

	fallbackScore = 5
	defaultRole   = "Software Engineer"
)

// TextGenerator produces raw model text for a routed request.
// *llm.Router satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// Target selects the provider, credential and model for a call.
type Target struct {
	Provider llm.ProviderName
	APIKey   string
	Model    string
}

// QuestionParams describes the batch of questions to generate.
type QuestionParams struct {
	Role       string
	Domain     string
	Experience string
	Mode       string
	N          int
}

// Generator builds prompts, calls the model and turns its output into
// domain records. Unusable output never fails a call; it is replaced by
// deterministic fallback content.
type Generator struct {
	llm     TextGenerator
	prompts *prompts.Set
	variant prompts.PromptVariant
}

// NewGenerator creates a Generator. An empty variant means standard.
func NewGenerator(tg TextGenerator, set *prompts.Set, variant prompts.PromptVariant) *Generator {
	if variant == "" {
		variant = prompts.PromptStandard
	}
	return &Generator{llm: tg, prompts: set, variant: variant}
}

// Questions generates p.N questions. Provider failures are returned
// unchanged as *llm.ProviderError.
func (g *Generator) Questions(ctx context.Context, t Target, p QuestionParams) ([]model.Question, error) {
	if p.Role == "" {
		p.Role = defaultRole
	}
	prompt, err := g.prompts.BuildQuestionPrompt(prompts.QuestionData{
		Num:        p.N,
		Role:       p.Role,
		Domain:     p.Domain,
		Experience: p.Experience,
		Mode:       p.Mode,
	})
	if err != nil {
		return nil, fmt.Errorf("build question prompt: %w", err)
	}

	text, err := g.llm.Generate(ctx, llm.Request{
		Provider:    t.Provider,
		APIKey:      t.APIKey,
		Model:       t.Model,
		System:      prompts.QuestionSystem,
		Prompt:      prompt,
		MaxTokens:   questionMaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, err
	}

	qs, ok := parseQuestions(text, p.N)
	if !ok {
		slog.Warn("unusable question output, using fallback questions",
			"provider", t.Provider, "n", p.N, "chars", len(text))
		return FallbackQuestions(p.Role, p.Mode, p.N), nil
	}
	return qs, nil
}

// FallbackQuestions returns n generic questions numbered 1..n.
func FallbackQuestions(role, mode string, n int) []model.Question {
	if role == "" {
		role = defaultRole
	}
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:         i + 1,
			Text:       fmt.Sprintf("Tell me about a challenge you faced in %s role. (fallback Q%d)", role, i+1),
			Type:       mode,
			Difficulty: model.DifficultyMedium,
		}
	}
	return qs
}

// parseQuestions extracts at most n questions from model output. It reports
// false when the output cannot be used at all.
func parseQuestions(text string, n int) ([]model.Question, bool) {
	parsed := llm.ParseJSON(text)
	if !parsed.OK() {
		return nil, false
	}

	list := parsed.Value
	raw := gjson.ParseBytes(parsed.JSON)
	if parsed.IsObject() {
		inner := raw.Get("questions")
		if !inner.IsArray() {
			return nil, false
		}
		list = inner.Value()
		raw = inner
	}
	if err := questionValidator.Validate(list); err != nil {
		slog.Debug("question output failed schema check", "error", err)
		return nil, false
	}

	var qs []model.Question
	raw.ForEach(func(_, item gjson.Result) bool {
		qs = append(qs, model.Question{
			ID:         int(item.Get("id").Int()),
			Text:       strings.TrimSpace(item.Get("question").String()),
			Type:       strings.TrimSpace(item.Get("type").String()),
			Difficulty: model.Difficulty(strings.ToLower(strings.TrimSpace(item.Get("difficulty").String()))),
			Hint:       strings.TrimSpace(item.Get("hint").String()),
		})
		return n <= 0 || len(qs) < n
	})
	if len(qs) == 0 {
		return nil, false
	}
	normalizeIDs(qs)
	return qs, true
}

// normalizeIDs renumbers questions 1..len when any id is missing,
// non-positive or repeated.
func normalizeIDs(qs []model.Question) {
	seen := make(map[int]bool, len(qs))
	valid := true
	for _, q := range qs {
		if q.ID <= 0 || seen[q.ID] {
			valid = false
			break
		}
		seen[q.ID] = true
	}
	if valid {
		return
	}
	for i := range qs {
		qs[i].ID = i + 1
	}
}

// Evaluate scores one answer. Provider failures are returned unchanged as
// *llm.ProviderError.
func (g *Generator) Evaluate(ctx context.Context, t Target, q model.Question, answer, mode, experience string) (model.Evaluation, error) {
	prompt, err := g.prompts.BuildEvalPrompt(g.variant, prompts.EvalData{
		QuestionID: q.ID,
		Question:   q.Text,
		Answer:     answer,
		Mode:       mode,
		Experience: experience,
	})
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("build eval prompt: %w", err)
	}

	text, err := g.llm.Generate(ctx, llm.Request{
		Provider:    t.Provider,
		APIKey:      t.APIKey,
		Model:       t.Model,
		System:      prompts.EvalSystem,
		Prompt:      prompt,
		MaxTokens:   evalMaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return model.Evaluation{}, err
	}

	ev, ok := parseEvaluation(text, q.ID)
	if !ok {
		slog.Warn("unusable evaluation output, using fallback scores",
			"provider", t.Provider, "question_id", q.ID, "chars", len(text))
		return FallbackEvaluation(q.ID, text), nil
	}
	return ev, nil
}

// FallbackEvaluation is the record used when evaluation output cannot be
// parsed: midpoint scores with the raw output as feedback.
func FallbackEvaluation(questionID int, raw string) model.Evaluation {
	return model.Evaluation{
		QuestionID: questionID,
		Scores: model.Scores{
			Technical:     fallbackScore,
			Communication: fallbackScore,
			Confidence:    fallbackScore,
		},
		Feedback:  strings.TrimSpace(raw),
		Resources: []string{},
	}
}

func parseEvaluation(text string, questionID int) (model.Evaluation, bool) {
	parsed := llm.ParseJSON(text)
	if !parsed.OK() || !parsed.IsObject() {
		return model.Evaluation{}, false
	}
	if err := evaluationValidator.Validate(parsed.Value); err != nil {
		slog.Debug("evaluation output failed schema check", "error", err)
		return model.Evaluation{}, false
	}

	r := gjson.ParseBytes(parsed.JSON)
	return model.Evaluation{
		QuestionID: questionID,
		Scores: model.Scores{
			Technical:     scoreValue(r.Get("scores.technical")),
			Communication: scoreValue(r.Get("scores.communication")),
			Confidence:    scoreValue(r.Get("scores.confidence")),
		},
		Feedback:              textValue(r.Get("feedback")),
		ExamplesOrCorrections: textValue(r.Get("examples_or_corrections")),
		Resources:             listValue(r.Get("resources")),
	}, true
}

// scoreValue reads a sub-score given as a number or numeric string.
// Anything else counts as zero.
func scoreValue(v gjson.Result) int {
	switch v.Type {
	case gjson.Number:
		return int(math.Round(v.Num))
	case gjson.String:
		return int(math.Round(gjson.Parse(strings.TrimSpace(v.Str)).Float()))
	default:
		return 0
	}
}

func textValue(v gjson.Result) string {
	if v.IsArray() {
		var lines []string
		for _, item := range v.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				lines = append(lines, s)
			}
		}
		return strings.Join(lines, "\n")
	}
	return strings.TrimSpace(v.String())
}

func listValue(v gjson.Result) []string {
	out := []string{}
	if !v.IsArray() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
		return out
	}
	for _, item := range v.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
