package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quaynav/quay/internal/archive"
	"github.com/quaynav/quay/internal/model"
)

// GET /api/backup/webdav/config
func handleGetRemoteConfig(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cred, err := a.creds.Redacted()
		if err != nil {
			respondError(w, err)
			return
		}
		if cred == nil {
			respondJSON(w, http.StatusOK, map[string]any{"configured": false})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"configured": true,
			"url":        cred.URL,
			"username":   cred.Username,
		})
	}
}

// PUT /api/backup/webdav/config
func handleSetRemoteConfig(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cred model.RemoteCredential
		if err := decodeJSON(r, &cred); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		if cred.URL == "" || cred.Username == "" || cred.Password == "" {
			badRequest(w, "url, username and password are required")
			return
		}
		if err := a.creds.Save(cred); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"configured": true,
			"url":        cred.URL,
			"username":   cred.Username,
		})
	}
}

// DELETE /api/backup/webdav/config
func handleClearRemoteConfig(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.creds.Clear(); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

// GET /api/backup/webdav/list
func handleListRemote(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archives, err := a.remote.List(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, archives)
	}
}

// POST /api/backup/webdav/sync/{name} pushes one local archive to the remote store
func handleSyncToRemote(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := archive.ValidateName(name); err != nil {
			badRequest(w, err.Error())
			return
		}
		arch, err := a.archives.Get(name)
		if err != nil {
			respondError(w, err)
			return
		}
		if err := a.remote.Upload(r.Context(), arch); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "synced", "archive": name})
	}
}

// POST /api/backup/webdav/restore/{name} downloads a remote archive into the
// local pool (replacing any stale local copy) and restores from it.
func handleRestoreFromRemote(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := archive.ValidateName(name); err != nil {
			badRequest(w, err.Error())
			return
		}

		rc, err := a.remote.Download(r.Context(), name)
		if err != nil {
			respondError(w, err)
			return
		}
		defer rc.Close()

		if _, err := a.archives.Get(name); err == nil {
			if err := a.archives.Delete(name); err != nil {
				respondError(w, err)
				return
			}
		} else if !errors.Is(err, archive.ErrNotFound) {
			respondError(w, err)
			return
		}
		if _, err := a.archives.Save(name, rc); err != nil {
			respondError(w, err)
			return
		}

		restored, err := a.engine.Restore(name)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status":   "restored",
			"archive":  name,
			"restored": restored,
		})
	}
}

// DELETE /api/backup/webdav/{name}
func handleDeleteRemote(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := archive.ValidateName(name); err != nil {
			badRequest(w, err.Error())
			return
		}
		if err := a.remote.Delete(r.Context(), name); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "archive": name})
	}
}
