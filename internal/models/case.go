package models

import (
	"github.com/myrjola/casebook/internal/errors"
	"log/slog"
	"strings"
)

var ErrInvalidDifficulty = errors.NewSentinel("invalid difficulty")

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty accepts the difficulty names case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard} {
		if strings.EqualFold(strings.TrimSpace(s), string(d)) {
			return d, nil
		}
	}
	return "", errors.Wrap(ErrInvalidDifficulty, "parse difficulty", slog.String("difficulty", s))
}

type ClueType string

const (
	ClueTypePhysical  ClueType = "Physical"
	ClueTypeTestimony ClueType = "Testimony"
	ClueTypeDigital   ClueType = "Digital"
)

// Case is the public header of a mystery.
type Case struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Difficulty  Difficulty `json:"difficulty"`
}

// Clue is a fact or artifact the player can examine.
type Clue struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        ClueType `json:"type"`
}

// Suspect is a character of the case, one of whom is the culprit.
type Suspect struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
	Motive      string `json:"motive"`
}

// Solution is the hidden ground truth only consulted when grading a deduction.
type Solution struct {
	CulpritID      string   `json:"culpritId"`
	Reasoning      string   `json:"reasoning"`
	KeyEvidenceIDs []string `json:"keyEvidenceIds"`
}

// CaseDetails is the unit produced by case generation and stored in the history.
type CaseDetails struct {
	Case     Case      `json:"case"`
	Clues    []Clue    `json:"clues"`
	Suspects []Suspect `json:"suspects"`
	Solution Solution  `json:"solution"`
}

// Suspect looks up a suspect of the case by id.
func (d CaseDetails) Suspect(id string) (Suspect, bool) {
	for _, s := range d.Suspects {
		if s.ID == id {
			return s, true
		}
	}
	return Suspect{}, false
}

// HasClue reports whether the clue id belongs to the case.
func (d CaseDetails) HasClue(id string) bool {
	for _, c := range d.Clues {
		if c.ID == id {
			return true
		}
	}
	return false
}
