package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (a *api) listSchemas(w http.ResponseWriter, r *http.Request) {
	names, err := a.svc.Schemas(r.URL.Query().Get("entity"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": names})
}

func (a *api) describeSchema(w http.ResponseWriter, r *http.Request) {
	d, err := a.svc.Describe(chi.URLParam(r, "name"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *api) validate(w http.ResponseWriter, r *http.Request) {
	materialize := a.materialize
	if raw := r.URL.Query().Get("materialize"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			materialize = b
		}
	}
	body, err := decodeBody(r, false)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	out, err := a.svc.Validate(r.Context(), chi.URLParam(r, "name"), body, materialize)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "value": out})
}

func (a *api) renderSQL(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r, true)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	q, err := a.svc.RenderFindMany(r.Context(), chi.URLParam(r, "entity"), body)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *api) find(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r, true)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	rows, err := a.svc.Find(r.Context(), chi.URLParam(r, "entity"), body)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}
