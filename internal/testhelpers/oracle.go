package testhelpers

import (
	"context"
	"fmt"
	"github.com/myrjola/casebook/internal/models"
	"sync"
)

// Oracle is a scriptable stand-in for the generation service. Unset functions return a zero value and no error.
//
// Gate, when non-nil, blocks every call until a value is received from it, which lets tests observe the busy state.
type Oracle struct {
	GenerateCaseFunc      func(ctx context.Context, difficulty models.Difficulty, lang models.Language) (models.CaseDetails, error)
	InterrogateFunc       func(ctx context.Context, req models.InterrogationRequest) (string, error)
	EvaluateDeductionFunc func(ctx context.Context, req models.EvaluationRequest) (models.Evaluation, error)
	Gate                  chan struct{}

	mu              sync.Mutex
	interrogations  []models.InterrogationRequest
	evaluations     []models.EvaluationRequest
	generationCount int
}

func (o *Oracle) wait(ctx context.Context) error {
	if o.Gate == nil {
		return nil
	}
	select {
	case <-o.Gate:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // test double
	}
}

func (o *Oracle) GenerateCase(
	ctx context.Context,
	difficulty models.Difficulty,
	lang models.Language,
) (models.CaseDetails, error) {
	o.mu.Lock()
	o.generationCount++
	o.mu.Unlock()
	if err := o.wait(ctx); err != nil {
		return models.CaseDetails{}, err
	}
	if o.GenerateCaseFunc == nil {
		return models.CaseDetails{}, nil
	}
	return o.GenerateCaseFunc(ctx, difficulty, lang)
}

func (o *Oracle) Interrogate(ctx context.Context, req models.InterrogationRequest) (string, error) {
	o.mu.Lock()
	o.interrogations = append(o.interrogations, req)
	o.mu.Unlock()
	if err := o.wait(ctx); err != nil {
		return "", err
	}
	if o.InterrogateFunc == nil {
		return "", nil
	}
	return o.InterrogateFunc(ctx, req)
}

func (o *Oracle) EvaluateDeduction(ctx context.Context, req models.EvaluationRequest) (models.Evaluation, error) {
	o.mu.Lock()
	o.evaluations = append(o.evaluations, req)
	o.mu.Unlock()
	if err := o.wait(ctx); err != nil {
		return models.Evaluation{}, err
	}
	if o.EvaluateDeductionFunc == nil {
		return models.Evaluation{}, nil
	}
	return o.EvaluateDeductionFunc(ctx, req)
}

// GenerationCount is the number of case generation requests received.
func (o *Oracle) GenerationCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generationCount
}

// Interrogations returns the interrogation requests received so far.
func (o *Oracle) Interrogations() []models.InterrogationRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.InterrogationRequest(nil), o.interrogations...)
}

// Evaluations returns the grading requests received so far.
func (o *Oracle) Evaluations() []models.EvaluationRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.EvaluationRequest(nil), o.evaluations...)
}

// SampleCase returns a case with four clues and three suspects where the second suspect is the culprit.
func SampleCase(title string) models.CaseDetails {
	clues := make([]models.Clue, 4) //nolint:mnd // fixture size
	types := []models.ClueType{models.ClueTypePhysical, models.ClueTypeTestimony, models.ClueTypeDigital,
		models.ClueTypePhysical}
	for i := range clues {
		clues[i] = models.Clue{
			ID:          fmt.Sprintf("clue-%d", i+1),
			Name:        fmt.Sprintf("Clue %d", i+1),
			Description: fmt.Sprintf("Description of clue %d", i+1),
			Type:        types[i],
		}
	}
	return models.CaseDetails{
		Case: models.Case{
			ID:          "case-1",
			Title:       title,
			Description: "A merchant is found dead in a room locked from the inside.",
			Location:    "Khan el-Khalili, Cairo",
			Difficulty:  models.DifficultyEasy,
		},
		Clues: clues,
		Suspects: []models.Suspect{
			{ID: "suspect-1", Name: "Suspect A", Role: "Shop assistant", Description: "Nervous", Motive: "Unpaid wages"},
			{ID: "suspect-2", Name: "Suspect B", Role: "Business partner", Description: "Calm", Motive: "Debts"},
			{ID: "suspect-3", Name: "Suspect C", Role: "Neighbour", Description: "Curious", Motive: "Old feud"},
		},
		Solution: models.Solution{
			CulpritID:      "suspect-2",
			Reasoning:      "The partner held the only spare key.",
			KeyEvidenceIDs: []string{"clue-1", "clue-3"},
		},
	}
}
