package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/reviewd/reviewd/internal/model"
)

// maxUploadBytes bounds one submission, matching the analyzer's appetite.
const maxUploadBytes = 64 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"active_sessions": s.svc.ActiveCount(),
		"uptime":          time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	config := model.DefaultReviewConfig()
	if raw := r.FormValue("config"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &config); err != nil {
			writeError(w, http.StatusBadRequest, "invalid config: "+err.Error())
			return
		}
	}

	var batch model.Batch
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "reading upload "+fh.Filename)
			return
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "reading upload "+fh.Filename)
			return
		}
		batch.Files = append(batch.Files, model.BatchFile{
			Name:    fh.Filename,
			Content: content,
		})
	}

	id, err := s.svc.Submit(r.Context(), batch, config)
	if err != nil {
		slog.WarnContext(r.Context(), "submission rejected", "error", err)
		writeError(w, statusCode(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"status":     "started",
		"message":    "code review analysis initiated",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Status(r.PathValue("id"))
	if err != nil {
		writeError(w, statusCode(err), "session not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Result(r.PathValue("id"))
	if err != nil {
		writeError(w, statusCode(err), "results not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := s.svc.Report(id)
	if err != nil {
		writeError(w, statusCode(err), "results not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "code_review_report_"+id+".html"))
	_, _ = w.Write(doc)
}

func (s *Server) handleFindings(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.Findings(r.PathValue("id"))
	if err != nil {
		writeError(w, statusCode(err), "results not found")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.cyclonedx+json; version=1.6")
	_, _ = w.Write(doc)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	raw, err := s.svc.Archive(id)
	if err != nil {
		writeError(w, statusCode(err), "results not found")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "improved_code_"+id+".zip"))
	_, _ = w.Write(raw)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
