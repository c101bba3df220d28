package game

import (
	"github.com/myrjola/casebook/internal/models"
	"slices"
)

// View is a snapshot of the controller that is safe to show to the player. It never contains the solution.
type View struct {
	State     State           `json:"state"`
	Language  models.Language `json:"language"`
	Direction string          `json:"direction"`

	Case              *models.Case     `json:"case,omitempty"`
	Clues             []models.Clue    `json:"clues,omitempty"`
	Suspects          []models.Suspect `json:"suspects,omitempty"`
	DiscoveredClueIDs []string         `json:"discoveredClueIds"`

	Suspect        *models.Suspect  `json:"suspect,omitempty"`
	Transcript     []models.Message `json:"transcript"`
	PendingMessage string           `json:"pendingMessage,omitempty"`
	ChatError      string           `json:"chatError,omitempty"`

	Draft      *models.Deduction  `json:"draft,omitempty"`
	Evaluation *models.Evaluation `json:"evaluation,omitempty"`

	Busy []Category `json:"busy"`
}

// Discovered reports whether the clue is marked as examined.
func (v View) Discovered(clueID string) bool {
	return slices.Contains(v.DiscoveredClueIDs, clueID)
}
