package models

// Deduction is the player's final accusation.
type Deduction struct {
	SuspectID string `json:"suspectId"`
	Reasoning string `json:"reasoning"`
}

// EvaluationRequest carries the full case, including the solution, to the grader.
type EvaluationRequest struct {
	Details   CaseDetails
	Deduction Deduction
	Language  Language
}

// Evaluation is the grader's verdict. It ends a play-through.
type Evaluation struct {
	IsCorrect bool    `json:"isCorrect"`
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback"`
	Comment   string  `json:"conanComment"`
}
