package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/recon"
	"github.com/sells-group/recon-cli/internal/report"
)

type errorResponse struct {
	Error string `json:"error"`
}

type correctionRequest struct {
	Source model.Source `json:"source"`
	Value  string       `json:"value"`
}

type correctionResponse struct {
	DocumentID string          `json:"document_id"`
	Source     model.Source    `json:"source"`
	Field      model.FieldKey  `json:"field"`
	Active     bool            `json:"active"`
	Effective  recon.Effective `json:"effective"`
}

type judgmentRequest struct {
	Status model.JudgmentStatus `json:"status"`
}

type judgmentResponse struct {
	DocumentID string                `json:"document_id"`
	Changed    bool                  `json:"changed"`
	State      model.JudgmentState   `json:"state"`
	Judgment   model.JudgmentDisplay `json:"judgment"`
}

type coordinatesResponse struct {
	DocumentID  string             `json:"document_id"`
	Field       model.FieldKey     `json:"field"`
	Source      model.Source       `json:"source"`
	Coordinates *model.Coordinates `json:"coordinates"`
	Scale       int                `json:"scale"`
}

type saveResponse struct {
	SessionID   string `json:"session_id"`
	Corrections int    `json:"corrections"`
	Judgments   int    `json:"judgments"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeEngineError maps engine sentinels to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recon.ErrUnknownDocument):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, recon.ErrUnknownField),
		errors.Is(err, recon.ErrUnknownSource),
		errors.Is(err, recon.ErrInvalidJudgment):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		zap.L().Error("server: engine error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// fieldParam accepts snake_case or camelCase field names.
func fieldParam(r *http.Request) model.FieldKey {
	k, _ := model.ParseFieldKey(chi.URLParam(r, "field"))
	return k
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	summary := s.engine.Summary()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	rows := s.engine.Rows()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	row, err := s.engine.Row(chi.URLParam(r, "documentID"))
	s.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleSetCorrection(w http.ResponseWriter, r *http.Request) {
	var req correctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == "" {
		req.Source = model.SourceInvoice
	}
	doc, field := chi.URLParam(r, "documentID"), fieldParam(r)

	s.mu.Lock()
	active, err := s.engine.SetCorrection(doc, req.Source, field, req.Value)
	var eff recon.Effective
	if err == nil {
		eff, err = s.engine.EffectiveValue(doc, req.Source, field)
	}
	s.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}

	s.metrics.RecordAction("set_correction", active)
	writeJSON(w, http.StatusOK, correctionResponse{
		DocumentID: doc,
		Source:     req.Source,
		Field:      field,
		Active:     active,
		Effective:  eff,
	})
}

// handleClearCorrection removes the (document, field) correction. The
// optional source query selects which raw column the response shows.
func (s *Server) handleClearCorrection(w http.ResponseWriter, r *http.Request) {
	src := model.Source(r.URL.Query().Get("source"))
	if src == "" {
		src = model.SourceInvoice
	}
	if !src.Valid() {
		writeEngineError(w, eris.Wrapf(recon.ErrUnknownSource, "source %q", src))
		return
	}
	doc, field := chi.URLParam(r, "documentID"), fieldParam(r)

	s.mu.Lock()
	cleared, err := s.engine.ClearCorrection(doc, field)
	var eff recon.Effective
	if err == nil {
		eff, err = s.engine.EffectiveValue(doc, src, field)
	}
	s.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}

	s.metrics.RecordAction("clear_correction", cleared)
	writeJSON(w, http.StatusOK, correctionResponse{
		DocumentID: doc,
		Source:     src,
		Field:      field,
		Active:     false,
		Effective:  eff,
	})
}

func (s *Server) judgmentResult(doc string, changed bool) judgmentResponse {
	return judgmentResponse{
		DocumentID: doc,
		Changed:    changed,
		State:      s.engine.JudgmentState(doc),
		Judgment:   s.engine.Judgment(doc),
	}
}

func (s *Server) handleSelectJudgment(w http.ResponseWriter, r *http.Request) {
	var req judgmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc := chi.URLParam(r, "documentID")

	s.mu.Lock()
	err := s.engine.SelectPending(doc, req.Status)
	resp := s.judgmentResult(doc, err == nil)
	s.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}

	s.metrics.RecordAction("select_judgment", true)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearJudgment(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "documentID")

	s.mu.Lock()
	known := s.engine.Dataset().Has(doc)
	cleared := s.engine.ClearPending(doc)
	resp := s.judgmentResult(doc, cleared)
	s.mu.Unlock()
	if !known {
		writeEngineError(w, recon.ErrUnknownDocument)
		return
	}

	s.metrics.RecordAction("clear_judgment", cleared)
	writeJSON(w, http.StatusOK, resp)
}

// handleConfirmJudgment commits the pending selection. Confirming with
// nothing pending is a no-op reported as changed=false, not an error.
func (s *Server) handleConfirmJudgment(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "documentID")

	s.mu.Lock()
	known := s.engine.Dataset().Has(doc)
	confirmed := s.engine.Confirm(doc)
	resp := s.judgmentResult(doc, confirmed)
	s.mu.Unlock()
	if !known {
		writeEngineError(w, recon.ErrUnknownDocument)
		return
	}

	s.metrics.RecordAction("confirm_judgment", confirmed)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCoordinates(w http.ResponseWriter, r *http.Request) {
	doc, field := chi.URLParam(r, "documentID"), fieldParam(r)
	src := model.Source(chi.URLParam(r, "source"))

	s.mu.Lock()
	coords, err := s.engine.ResolveCoordinates(doc, field, src)
	s.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coordinatesResponse{
		DocumentID:  doc,
		Field:       field,
		Source:      src,
		Coordinates: coords,
		Scale:       model.CoordinateScale,
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	err := s.SaveSnapshot(r.Context(), snap)
	if errors.Is(err, ErrNoStore) {
		writeError(w, http.StatusServiceUnavailable, "no session store configured")
		return
	}
	if err != nil {
		zap.L().Error("server: save session", zap.String("session_id", snap.SessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}

	zap.L().Info("session saved",
		zap.String("session_id", snap.SessionID),
		zap.Int("corrections", len(snap.Corrections)),
		zap.Int("judgments", len(snap.Judgments)),
	)
	writeJSON(w, http.StatusOK, saveResponse{
		SessionID:   snap.SessionID,
		Corrections: len(snap.Corrections),
		Judgments:   len(snap.Judgments),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	rows := s.engine.Rows()
	s.mu.Unlock()

	f, err := report.BuildWorkbook(rows)
	if err != nil {
		zap.L().Error("server: build workbook", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="reconciliation.xlsx"`)
	if err := f.Write(w); err != nil {
		zap.L().Error("server: write workbook", zap.Error(err))
	}
}
