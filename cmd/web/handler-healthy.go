package main

import "net/http"

type healthResponse struct {
	Status string `json:"status"`
}

// healthy answers load balancer probes. It sits outside the session chain so probes don't create sessions.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
}
