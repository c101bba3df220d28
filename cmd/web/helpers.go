package main

import (
	"encoding/json"
	"github.com/myrjola/casebook/internal/contexthelpers"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/game"
	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/repositories"
	"log/slog"
	"net/http"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.NewSentinel("malformed request body")

type errorResponse struct {
	Error string `json:"error"`
}

// errorStatuses maps error categories to responses. The first match wins.
var errorStatuses = []struct {
	target error
	status int
}{
	{target: game.ErrSessionEnded, status: http.StatusConflict},
	{target: game.ErrBusy, status: http.StatusTooManyRequests},
	{target: game.ErrInvalidTransition, status: http.StatusConflict},
	{target: game.ErrUnknownSuspect, status: http.StatusBadRequest},
	{target: game.ErrUnknownClue, status: http.StatusBadRequest},
	{target: game.ErrEmptyMessage, status: http.StatusBadRequest},
	{target: game.ErrIncompleteDeduction, status: http.StatusBadRequest},
	{target: models.ErrInvalidDifficulty, status: http.StatusBadRequest},
	{target: models.ErrUnsupportedLanguage, status: http.StatusBadRequest},
	{target: errBadRequest, status: http.StatusBadRequest},
	{target: repositories.ErrNotFound, status: http.StatusNotFound},
	{target: game.ErrGenerationFailed, status: http.StatusBadGateway},
	{target: game.ErrChatFailed, status: http.StatusBadGateway},
	{target: game.ErrGradingFailed, status: http.StatusBadGateway},
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "marshal response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// readJSON decodes the request body into v. Decoding failures are marked with errBadRequest.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.Mark(err, errBadRequest), "decode request body")
	}
	return nil
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	app.writeJSON(w, r, http.StatusInternalServerError,
		errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
}

// gameError responds with the status of the error's category, or 500 for anything unexpected.
func (app *application) gameError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatuses {
		if !errors.Is(err, e.target) {
			continue
		}
		level := slog.LevelDebug
		if e.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		app.logger.LogAttrs(r.Context(), level, http.StatusText(e.status),
			slog.String("method", r.Method), slog.String("uri", r.URL.RequestURI()), errors.SlogError(err))
		app.writeJSON(w, r, e.status, errorResponse{Error: e.target.Error()})
		return
	}
	app.serverError(w, r, err)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound)})
}

// controller returns the game of the player identified by the identifyPlayer middleware.
func (app *application) controller(r *http.Request) *game.Controller {
	return app.players.controller(contexthelpers.PlayerID(r.Context()))
}
