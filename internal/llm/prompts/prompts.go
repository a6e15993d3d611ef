package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var embedded embed.FS

var (
	candidateAnswerRegex    = regexp.MustCompile(`(?i)</?\s*candidate-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const (
	// QuestionSystem is the system message for question generation.
	QuestionSystem = "You are an interviewer and career coach."
	// EvalSystem is the system message for answer evaluation.
	EvalSystem = "You are an expert interviewer and coach."

	maxAnswerRunes = 10000
	maxFieldRunes  = 200
)

// PromptVariant represents an evaluation prompt variant.
type PromptVariant string

const (
	// PromptStrict grades harshly, for senior hiring loops.
	PromptStrict PromptVariant = "strict"
	// PromptStandard is the default evaluation variant.
	PromptStandard PromptVariant = "standard"
	// PromptLenient grades generously, for practice runs.
	PromptLenient PromptVariant = "lenient"
)

var validVariants = map[PromptVariant]bool{
	PromptStrict:   true,
	PromptStandard: true,
	PromptLenient:  true,
}

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// QuestionData holds template data for question generation prompts.
type QuestionData struct {
	Num        int
	Role       string
	Domain     string
	Experience string
	Mode       string
}

// EvalData holds template data for evaluation prompts.
type EvalData struct {
	QuestionID int
	Question   string
	Answer     string
	Mode       string
	Experience string
}

// Set is a parsed collection of prompt templates.
type Set struct {
	questions *template.Template
	eval      map[PromptVariant]*template.Template
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
	defaultErr  error
)

// Default returns the templates compiled into the binary. They are parsed
// once.
func Default() (*Set, error) {
	defaultOnce.Do(func() {
		defaultSet, defaultErr = Load(embedded)
	})
	return defaultSet, defaultErr
}

// Load parses prompt templates from fsys. It expects templates/questions.txt
// and templates/eval_<variant>.txt for every variant.
func Load(fsys fs.FS) (*Set, error) {
	s := &Set{eval: make(map[PromptVariant]*template.Template)}

	var err error
	s.questions, err = parseFile(fsys, "templates/questions.txt")
	if err != nil {
		return nil, err
	}

	for _, v := range []PromptVariant{PromptStrict, PromptStandard, PromptLenient} {
		tmpl, err := parseFile(fsys, "templates/eval_"+string(v)+".txt")
		if err != nil {
			return nil, err
		}
		s.eval[v] = tmpl
	}
	return s, nil
}

func parseFile(fsys fs.FS, name string) (*template.Template, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.New("failed to read prompt file " + name + ": " + err.Error())
	}
	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, errors.New("failed to parse prompt template " + name + ": " + err.Error())
	}
	return tmpl, nil
}

// BuildQuestionPrompt builds the prompt asking for data.Num questions.
func (s *Set) BuildQuestionPrompt(data QuestionData) (string, error) {
	data.Role = sanitizeField(data.Role)
	data.Domain = sanitizeField(data.Domain)
	data.Experience = sanitizeField(data.Experience)
	data.Mode = sanitizeField(data.Mode)

	var buf bytes.Buffer
	if err := s.questions.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildEvalPrompt builds an evaluation prompt using the specified variant.
func (s *Set) BuildEvalPrompt(variant PromptVariant, data EvalData) (string, error) {
	tmpl, ok := s.eval[variant]
	if !ok {
		return "", fmt.Errorf("invalid prompt variant: %q", variant)
	}

	data.Answer = sanitizeAnswer(data.Answer)
	data.Mode = sanitizeField(data.Mode)
	data.Experience = sanitizeField(data.Experience)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func stripTags(s string) string {
	s = candidateAnswerRegex.ReplaceAllString(s, "")
	s = systemInstructionsRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func sanitizeAnswer(answer string) string {
	answer = stripTags(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		runes = runes[:maxAnswerRunes]
		answer = string(runes) + "\n\n[Answer truncated due to length]"
	}

	return answer
}

// sanitizeField cleans short metadata values that end up in prompts.
func sanitizeField(s string) string {
	s = strings.Join(strings.Fields(stripTags(s)), " ")
	if utf8.RuneCountInString(s) > maxFieldRunes {
		s = string([]rune(s)[:maxFieldRunes])
	}
	return s
}
