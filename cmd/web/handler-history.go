package main

import (
	"github.com/myrjola/casebook/internal/models"
	"net/http"
	"time"
)

// historySummary is a history entry without the solution.
type historySummary struct {
	ID         string      `json:"id"`
	RecordedAt time.Time   `json:"recordedAt"`
	Case       models.Case `json:"case"`
}

func (app *application) listHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := app.controller(r).History(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	summaries := make([]historySummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, historySummary{
			ID:         entry.ID,
			RecordedAt: entry.RecordedAt,
			Case:       entry.Details.Case,
		})
	}
	app.writeJSON(w, r, http.StatusOK, summaries)
}

func (app *application) removeHistory(w http.ResponseWriter, r *http.Request) {
	if err := app.controller(r).RemoveHistory(r.Context(), r.PathValue("entryID")); err != nil {
		app.gameError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
