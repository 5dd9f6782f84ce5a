package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/immisense/advisor/agent/agents/shalaye"
	"github.com/immisense/advisor/agent/assessment"
	contractx "github.com/immisense/advisor/agent/contract"
	statex "github.com/immisense/advisor/agent/state"
	"github.com/immisense/advisor/agent/visa"
	"github.com/rs/zerolog/log"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

type goalView struct {
	Goal       string   `json:"goal"`
	Categories []string `json:"categories"`
}

func (s *Server) listVisas(w http.ResponseWriter, r *http.Request) {
	goals := visa.Goals()
	out := make([]goalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, goalView{Goal: g, Categories: visa.CategoriesFor(g)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getVisa(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("category")
	cat, ok := visa.Lookup(code)
	if !ok {
		cat = visa.Category{
			Code:        code,
			Description: visa.Describe(code),
			Questions:   visa.QuestionsFor(code),
		}
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) saveProfile(w http.ResponseWriter, r *http.Request) {
	var profile map[string]any
	if err := decodeJSON(r, &profile); err != nil {
		writeError(w, err)
		return
	}

	st, err := s.assessor.SaveProfile(r.Context(), r.PathValue("id"), profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// runAssessment streams the report as it is compiled. Errors before the
// first chunk get a proper status; later ones end up in the trailer.
func (s *Server) runAssessment(w http.ResponseWriter, r *http.Request) {
	var req assessment.AssessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.SessionID = r.PathValue("id")

	flusher, _ := w.(http.Flusher)
	started := false
	sink := func(chunk string) error {
		if !started {
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			w.Header().Set("Trailer", "X-Assessment-Error")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	res, err := s.assessor.Assess(r.Context(), req, nil, sink)
	if err != nil {
		if started {
			w.Header().Set("X-Assessment-Error", err.Error())
			return
		}
		writeError(w, err)
		return
	}
	if !started {
		// A compiler that produced the whole report in one go still gets it delivered.
		_ = sink(res.Report.Markdown)
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	st, err := s.assessor.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) lastReport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.assessor.LastReport(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "text/markdown") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, rec.Markdown)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, fmt.Errorf("%w: limit must be a positive integer", contractx.ErrValidation))
			return
		}
		limit = n
	}

	records, err := s.assessor.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "product analysis is not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: %v", contractx.ErrValidation, err))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, fmt.Errorf("%w: image file is required", contractx.ErrValidation))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: read image: %v", contractx.ErrValidation, err))
		return
	}

	followUp, _ := strconv.ParseBool(r.FormValue("follow_up"))
	out, err := s.analyzer.Analyze(r.Context(), shalaye.AnalyzeRequest{
		Query:    r.FormValue("query"),
		Image:    shalaye.Image{MIMEType: header.Header.Get("Content-Type"), Data: data},
		FollowUp: followUp,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", contractx.ErrValidation, err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrValidation), errors.Is(err, statex.ErrInvalidSession):
		return http.StatusBadRequest
	case errors.Is(err, assessment.ErrNoReport), errors.Is(err, statex.ErrStateNotFound):
		return http.StatusNotFound
	case errors.Is(err, contractx.ErrModelInvoke), errors.Is(err, contractx.ErrSchemaViolation):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	if stage, ok := contractx.StageOf(err); ok {
		resp.Stage = string(stage)
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}
