package main

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quaynav/quay/internal/archive"
	"github.com/quaynav/quay/internal/logging"
	"github.com/quaynav/quay/internal/model"
)

// maxUploadBytes caps imported archives at 512 MB
const maxUploadBytes = 512 << 20

// POST /api/backup/create
func handleCreateBackup(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Description string `json:"description"`
		}
		if r.ContentLength > 0 {
			if err := decodeJSON(r, &req); err != nil {
				badRequest(w, "invalid request body")
				return
			}
		}
		arch, err := a.svc.ManualBackup(r.Context(), req.Description)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, arch)
	}
}

// GET /api/backup/list
func handleListBackups(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archives, err := a.archives.List()
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, archives)
	}
}

// GET /api/backup/download/{name}
func handleDownloadBackup(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := archive.ValidateName(name); err != nil {
			badRequest(w, err.Error())
			return
		}
		rc, arch, err := a.archives.Open(name)
		if err != nil {
			respondError(w, err)
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", arch.Name))
		w.Header().Set("Content-Length", strconv.FormatInt(arch.SizeBytes, 10))
		io.Copy(w, rc)
	}
}

// DELETE /api/backup/delete/{name}
func handleDeleteBackup(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := archive.ValidateName(name); err != nil {
			badRequest(w, err.Error())
			return
		}
		if err := a.archives.Delete(name); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// POST /api/backup/upload imports an externally held archive back into
// the local pool. The file keeps its original name, so restoring it
// later lands in the pool its prefix names.
func handleUploadBackup(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			badRequest(w, "invalid multipart upload")
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			badRequest(w, "missing file field")
			return
		}
		defer f.Close()

		if err := archive.ValidateName(hdr.Filename); err != nil {
			badRequest(w, err.Error())
			return
		}
		arch, err := a.archives.Save(hdr.Filename, f)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, arch)
	}
}

// POST /api/backup/restore/{name}
func handleRestoreBackup(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := archive.ValidateName(name); err != nil {
			badRequest(w, err.Error())
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

// GET /api/backup/stats
func handleBackupStats(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := a.svc.Stats()
		if err != nil {
			respondError(w, err)
			return
		}
		payload := struct {
			model.BackupStats
			NextDaily *time.Time `json:"nextDaily,omitempty"`
		}{BackupStats: stats}
		if next := a.svc.NextDaily(); !next.IsZero() {
			payload.NextDaily = &next
		}
		respondJSON(w, http.StatusOK, payload)
	}
}

// GET /api/backup/policy
func handleGetPolicy(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, a.policies.Current())
	}
}

// PUT /api/backup/policy
func handleUpdatePolicy(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p model.BackupPolicy
		if err := decodeJSON(r, &p); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		if err := a.policies.Update(p); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, a.policies.Current())
	}
}

// GET /api/logs
func handleGetLogs(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := logging.QueryOptions{
			Component: r.URL.Query().Get("component"),
			Level:     logging.LogLevel(r.URL.Query().Get("level")),
			Limit:     200,
		}
		if s := r.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				opts.Limit = n
			}
		}
		if s := r.URL.Query().Get("since"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				badRequest(w, "invalid since timestamp")
				return
			}
			opts.Since = t
		}
		entries, err := a.logger.Query(opts)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, entries)
	}
}
