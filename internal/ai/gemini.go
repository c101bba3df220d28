package ai

import (
	"context"
	"github.com/myrjola/casebook/internal/errors"
	"google.golang.org/genai"
	"slices"
)

const defaultGeminiModel = "gemini-3-flash-preview"

var errEmptyCandidates = errors.NewSentinel("generation returned no text")

type geminiBackend struct {
	client *genai.Client
	model  string
}

func newGeminiBackend(ctx context.Context, apiKey string, model string, baseURL string) (*geminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{ //nolint:exhaustruct // this is better for readability
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL}, //nolint:exhaustruct // only the endpoint is overridden
	})
	if err != nil {
		return nil, errors.Wrap(err, "new genai client")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiBackend{client: client, model: model}, nil
}

func (b *geminiBackend) complete(ctx context.Context, req completionRequest) (string, error) {
	contents := make([]*genai.Content, 0, len(req.turns))
	for _, t := range req.turns {
		r := genai.RoleUser
		if t.role == roleModel {
			r = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.text, genai.Role(r)))
	}

	config := &genai.GenerateContentConfig{ //nolint:exhaustruct // this is better for readability
		MaxOutputTokens: maxTokens,
	}
	if req.system != "" {
		config.SystemInstruction = genai.NewContentFromText(req.system, genai.RoleUser)
	}
	if schema := responseSchema(req.format); schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = schema
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, config)
	if err != nil {
		return "", errors.Wrap(err, "generate content")
	}
	text := resp.Text()
	if text == "" {
		return "", errEmptyCandidates
	}
	return text, nil
}

func stringSchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeString} //nolint:exhaustruct // this is better for readability
}

func objectSchema(properties map[string]*genai.Schema) *genai.Schema {
	required := make([]string, 0, len(properties))
	for name := range properties {
		required = append(required, name)
	}
	slices.Sort(required)
	return &genai.Schema{ //nolint:exhaustruct // this is better for readability
		Type:       genai.TypeObject,
		Properties: properties,
		Required:   required,
	}
}

func arraySchema(items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: items} //nolint:exhaustruct // this is better for readability
}

func enumSchema(values ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Enum: values} //nolint:exhaustruct // this is better for readability
}

// responseSchema returns the structured output schema matching the JSON shapes decoded by Client, or nil for free text.
func responseSchema(format responseFormat) *genai.Schema {
	switch format {
	case formatCaseDetails:
		return objectSchema(map[string]*genai.Schema{
			"case": objectSchema(map[string]*genai.Schema{
				"id":          stringSchema(),
				"title":       stringSchema(),
				"description": stringSchema(),
				"location":    stringSchema(),
				"difficulty":  enumSchema("Easy", "Medium", "Hard"),
			}),
			"clues": arraySchema(objectSchema(map[string]*genai.Schema{
				"id":          stringSchema(),
				"name":        stringSchema(),
				"description": stringSchema(),
				"type":        enumSchema("Physical", "Testimony", "Digital"),
			})),
			"suspects": arraySchema(objectSchema(map[string]*genai.Schema{
				"id":          stringSchema(),
				"name":        stringSchema(),
				"role":        stringSchema(),
				"description": stringSchema(),
				"motive":      stringSchema(),
			})),
			"solution": objectSchema(map[string]*genai.Schema{
				"culpritId":      stringSchema(),
				"reasoning":      stringSchema(),
				"keyEvidenceIds": arraySchema(stringSchema()),
			}),
		})
	case formatEvaluation:
		return objectSchema(map[string]*genai.Schema{
			"isCorrect":    {Type: genai.TypeBoolean}, //nolint:exhaustruct // this is better for readability
			"score":        {Type: genai.TypeNumber},  //nolint:exhaustruct // this is better for readability
			"feedback":     stringSchema(),
			"conanComment": stringSchema(),
		})
	case formatText:
		return nil
	}
	return nil
}
