package main

import (
	"github.com/myrjola/casebook/internal/contexthelpers"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/game"
	"github.com/myrjola/casebook/internal/models"
	"net/http"
)

type gameResponse struct {
	game.View
	CSRFToken string `json:"csrfToken"`
}

func (app *application) showGame(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, gameResponse{
		View:      app.controller(r).View(),
		CSRFToken: contexthelpers.CSRFToken(r.Context()),
	})
}

// gameAction runs action against the player's controller and responds with the resulting view.
func (app *application) gameAction(action func(r *http.Request, c *game.Controller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := app.controller(r)
		if err := action(r, c); err != nil {
			app.gameError(w, r, err)
			return
		}
		app.writeJSON(w, r, http.StatusOK, c.View())
	}
}

type languageRequest struct {
	Language string `json:"language"`
}

func (app *application) setLanguage(w http.ResponseWriter, r *http.Request) {
	app.gameAction(func(r *http.Request, c *game.Controller) error {
		var req languageRequest
		if err := readJSON(w, r, &req); err != nil {
			return err
		}
		lang, err := models.ParseLanguage(req.Language)
		if err != nil {
			return err //nolint:wrapcheck // already annotated
		}
		c.SetLanguage(lang)
		return nil
	})(w, r)
}

type startCaseRequest struct {
	Difficulty string `json:"difficulty"`
	// Language defaults to the current language of the game.
	Language string `json:"language"`
}

func (app *application) startCase(w http.ResponseWriter, r *http.Request) {
	app.gameAction(func(r *http.Request, c *game.Controller) error {
		var req startCaseRequest
		if err := readJSON(w, r, &req); err != nil {
			return err
		}
		difficulty, err := models.ParseDifficulty(req.Difficulty)
		if err != nil {
			return err //nolint:wrapcheck // already annotated
		}
		lang := c.View().Language
		if req.Language != "" {
			if lang, err = models.ParseLanguage(req.Language); err != nil {
				return err //nolint:wrapcheck // already annotated
			}
		}
		return c.StartCase(r.Context(), difficulty, lang)
	})(w, r)
}

func (app *application) resumeCase(w http.ResponseWriter, r *http.Request) {
	app.gameAction(func(r *http.Request, c *game.Controller) error {
		return c.ResumeCase(r.Context(), r.PathValue("entryID"))
	})(w, r)
}

func (app *application) toggleClue(w http.ResponseWriter, r *http.Request) {
	app.gameAction(func(r *http.Request, c *game.Controller) error {
		return c.ToggleClue(r.Context(), r.PathValue("clueID"))
	})(w, r)
}

func (app *application) selectSuspect(w http.ResponseWriter, r *http.Request) {
	app.gameAction(func(r *http.Request, c *game.Controller) error {
		return c.SelectSuspect(r.Context(), r.PathValue("suspectID"))
	})(w, r)
}

type messageRequest struct {
	Message string `json:"message"`
}

func (app *application) askSuspect(w http.ResponseWriter, r *http.Request) {
	app.gameAction(func(r *http.Request, c *game.Controller) error {
		var req messageRequest
		if err := readJSON(w, r, &req); err != nil {
			return err
		}
		if _, err := c.Ask(r.Context(), req.Message); err != nil {
			return errors.Wrap(err, "ask suspect")
		}
		return nil
	})(w, r)
}

func (app *application) submitDeduction(w http.ResponseWriter, r *http.Request) {
	app.gameAction(func(r *http.Request, c *game.Controller) error {
		var deduction models.Deduction
		if err := readJSON(w, r, &deduction); err != nil {
			return err
		}
		if _, err := c.SubmitDeduction(r.Context(), deduction); err != nil {
			return errors.Wrap(err, "submit deduction")
		}
		return nil
	})(w, r)
}
