package main

import (
	"github.com/justinas/alice"
	"github.com/myrjola/casebook/internal/game"
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthy", app.healthy)

	session := alice.New(app.sessionManager.LoadAndSave, app.noSurf, app.identifyPlayer, commonContext)
	withTimeout := func(h http.Handler) http.Handler {
		return timeoutHandler(h, app.cfg.RequestTimeout)
	}
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, session.Append(withTimeout).Then(h))
	}

	handle("GET /api/game", app.showGame)
	handle("POST /api/game/language", app.setLanguage)
	handle("POST /api/game/cases", app.startCase)
	handle("POST /api/game/cases/{entryID}/resume", app.resumeCase)
	handle("POST /api/game/clues/{clueID}/toggle", app.toggleClue)
	handle("POST /api/game/suspects/{suspectID}/interrogate", app.selectSuspect)
	handle("POST /api/game/interrogation/messages", app.askSuspect)
	handle("POST /api/game/interrogation/leave", app.gameAction(func(r *http.Request, c *game.Controller) error {
		return c.LeaveInterrogation(r.Context())
	}))
	handle("POST /api/game/deduction/begin", app.gameAction(func(r *http.Request, c *game.Controller) error {
		return c.BeginDeduction(r.Context())
	}))
	handle("POST /api/game/deduction/cancel", app.gameAction(func(r *http.Request, c *game.Controller) error {
		return c.NotReady(r.Context())
	}))
	handle("POST /api/game/deduction", app.submitDeduction)
	handle("POST /api/game/return", app.gameAction(func(r *http.Request, c *game.Controller) error {
		return c.Return(r.Context())
	}))
	handle("POST /api/game/abort", app.gameAction(func(r *http.Request, c *game.Controller) error {
		return c.Abort(r.Context())
	}))
	handle("GET /api/history", app.listHistory)
	handle("DELETE /api/history/{entryID}", app.removeHistory)

	mux.HandleFunc("/", app.notFound)

	return alice.New(app.recoverPanic, app.logRequest, secureHeaders).Then(mux)
}
