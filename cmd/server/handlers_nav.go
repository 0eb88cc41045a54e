package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quaynav/quay/internal/model"
)

// Every mutation here nudges the debounce scheduler: dashboard edits
// are exactly the changes the incremental backups exist to capture.

func urlID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// --- menus ---

func handleListMenus(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		menus, err := a.db.ListMenus(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, menus)
	}
}

func handleCreateMenu(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m model.Menu
		if err := decodeJSON(r, &m); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		if m.Name == "" {
			badRequest(w, "name is required")
			return
		}
		id, err := a.db.CreateMenu(r.Context(), m)
		if err != nil {
			respondError(w, err)
			return
		}
		m.ID = id
		a.svc.NotifyMutation()
		respondJSON(w, http.StatusCreated, m)
	}
}

func handleUpdateMenu(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			badRequest(w, "invalid menu id")
			return
		}
		var m model.Menu
		if err := decodeJSON(r, &m); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		m.ID = id
		if err := a.db.UpdateMenu(r.Context(), m); err != nil {
			respondError(w, err)
			return
		}
		a.svc.NotifyMutation()
		respondJSON(w, http.StatusOK, m)
	}
}

func handleDeleteMenu(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			badRequest(w, "invalid menu id")
			return
		}
		if err := a.db.DeleteMenu(r.Context(), id); err != nil {
			respondError(w, err)
			return
		}
		a.svc.NotifyMutation()
		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// --- cards ---

func handleListCards(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var menuID int64
		if s := r.URL.Query().Get("menuId"); s != "" {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				badRequest(w, "invalid menuId")
				return
			}
			menuID = id
		}
		cards, err := a.db.ListCards(r.Context(), menuID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, cards)
	}
}

func handleCreateCard(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c model.Card
		if err := decodeJSON(r, &c); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		if c.Title == "" || c.URL == "" || c.MenuID == 0 {
			badRequest(w, "menuId, title and url are required")
			return
		}
		id, err := a.db.CreateCard(r.Context(), c)
		if err != nil {
			respondError(w, err)
			return
		}
		c.ID = id
		a.svc.NotifyMutation()
		respondJSON(w, http.StatusCreated, c)
	}
}

func handleUpdateCard(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			badRequest(w, "invalid card id")
			return
		}
		var c model.Card
		if err := decodeJSON(r, &c); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		c.ID = id
		if err := a.db.UpdateCard(r.Context(), c); err != nil {
			respondError(w, err)
			return
		}
		a.svc.NotifyMutation()
		respondJSON(w, http.StatusOK, c)
	}
}

func handleDeleteCard(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			badRequest(w, "invalid card id")
			return
		}
		if err := a.db.DeleteCard(r.Context(), id); err != nil {
			respondError(w, err)
			return
		}
		a.svc.NotifyMutation()
		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// --- tags ---

func handleListTags(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := a.db.ListTags(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, tags)
	}
}

func handleCreateTag(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t model.Tag
		if err := decodeJSON(r, &t); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		if t.Name == "" {
			badRequest(w, "name is required")
			return
		}
		id, err := a.db.CreateTag(r.Context(), t)
		if err != nil {
			respondError(w, err)
			return
		}
		t.ID = id
		a.svc.NotifyMutation()
		respondJSON(w, http.StatusCreated, t)
	}
}

func handleUpdateTag(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			badRequest(w, "invalid tag id")
			return
		}
		var t model.Tag
		if err := decodeJSON(r, &t); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		t.ID = id
		if err := a.db.UpdateTag(r.Context(), t); err != nil {
			respondError(w, err)
			return
		}
		a.svc.NotifyMutation()
		respondJSON(w, http.StatusOK, t)
	}
}

func handleDeleteTag(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			badRequest(w, "invalid tag id")
			return
		}
		if err := a.db.DeleteTag(r.Context(), id); err != nil {
			respondError(w, err)
			return
		}
		a.svc.NotifyMutation()
		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
