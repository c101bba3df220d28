package ai

import (
	_ "embed"
	"encoding/json"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/models"
	"gopkg.in/yaml.v3"
	"log/slog"
	"strings"
	"text/template"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompts holds the parsed prompt templates.
type Prompts struct {
	generateCase *template.Template
	interrogate  *template.Template
	evaluate     *template.Template
}

type promptFile struct {
	GenerateCase string `yaml:"generate_case"`
	Interrogate  string `yaml:"interrogate"`
	Evaluate     string `yaml:"evaluate"`
}

var promptFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// DefaultPrompts returns the embedded prompt catalogue.
func DefaultPrompts() (*Prompts, error) {
	return ParsePrompts(defaultPrompts)
}

// ParsePrompts parses a YAML prompt catalogue. Every prompt must be present.
func ParsePrompts(data []byte) (*Prompts, error) {
	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "unmarshal prompts")
	}

	var (
		prompts Prompts
		err     error
	)
	for _, p := range []struct {
		name   string
		source string
		target **template.Template
	}{
		{name: "generate_case", source: file.GenerateCase, target: &prompts.generateCase},
		{name: "interrogate", source: file.Interrogate, target: &prompts.interrogate},
		{name: "evaluate", source: file.Evaluate, target: &prompts.evaluate},
	} {
		if strings.TrimSpace(p.source) == "" {
			return nil, errors.New("missing prompt", slog.String("prompt", p.name))
		}
		if *p.target, err = template.New(p.name).Funcs(promptFuncs).Option("missingkey=error").Parse(p.source); err != nil {
			return nil, errors.Wrap(err, "parse prompt", slog.String("prompt", p.name))
		}
	}
	return &prompts, nil
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", errors.Wrap(err, "render prompt", slog.String("prompt", t.Name()))
	}
	return strings.TrimSpace(sb.String()), nil
}

func (p *Prompts) GenerateCase(difficulty models.Difficulty, lang models.Language) (string, error) {
	return render(p.generateCase, struct {
		Difficulty models.Difficulty
		Language   models.Language
	}{Difficulty: difficulty, Language: lang})
}

func (p *Prompts) Interrogate(req models.InterrogationRequest) (string, error) {
	return render(p.interrogate, req)
}

func (p *Prompts) Evaluate(req models.EvaluationRequest) (string, error) {
	return render(p.evaluate, req)
}
