package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/service"
)

// FormatResponse is returned by the format and follow-up endpoints.
type FormatResponse struct {
	ExecutionID  string                   `json:"execution_id,omitempty"`
	SessionID    string                   `json:"session_id,omitempty"`
	TemplateName string                   `json:"template_name,omitempty"`
	Variants     []core.FormattingVariant `json:"variants"`
	Error        *core.CategorizedError   `json:"error,omitempty"`
}

// FollowUpBody is the request body of POST /api/v1/follow-up.
type FollowUpBody struct {
	Question  string `json:"question"`
	Agent     string `json:"agent"`
	Model     string `json:"model,omitempty"`
	VariantID string `json:"variant_id,omitempty"`
	Index     int    `json:"index"`
}

type agentResponse struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"display_name"`
	Executable   string   `json:"executable"`
	DefaultModel string   `json:"default_model"`
	Models       []string `json:"models"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.catalog.Templates())
}

func (s *Server) handleListTones(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.catalog.Tones())
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	specs := s.registry.List()
	out := make([]agentResponse, 0, len(specs))
	for _, spec := range specs {
		models := make([]string, len(spec.Models))
		for i, m := range spec.Models {
			models[i] = m.ID
		}
		out = append(out, agentResponse{
			ID:           spec.ID,
			DisplayName:  spec.DisplayName,
			Executable:   spec.Executable,
			DefaultModel: spec.DefaultModel,
			Models:       models,
		})
	}
	s.respondJSON(w, http.StatusOK, out)
}

// handleFormat runs a primary submission and waits for its outcome.
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var values core.FormValues
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	future, err := s.processor.ProcessText(r.Context(), core.ProcessingParams{Values: values})
	if err != nil {
		if errors.Is(err, core.ErrBusy) {
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		var domErr *core.DomainError
		if errors.As(err, &domErr) {
			s.respondError(w, http.StatusUnprocessableEntity, domErr.Message)
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondResult(w, r, future)
}

// handleFollowUp continues the current conversation.
func (s *Server) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	var body FollowUpBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Question == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "question is required")
		return
	}

	future := s.processor.ProcessFollowUp(r.Context(), service.FollowUpRequest{
		Question:  body.Question,
		Values:    core.FormValues{Agent: body.Agent, Model: body.Model},
		VariantID: body.VariantID,
		Index:     body.Index,
	})
	s.respondResult(w, r, future)
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.processor.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondResult(w http.ResponseWriter, r *http.Request, future *service.Future) {
	res, err := future.Wait(r.Context())
	if err != nil {
		// Client went away; nothing to write to.
		s.logger.Debug("format request abandoned", "error", err)
		return
	}

	resp := FormatResponse{
		ExecutionID:  res.ExecutionID,
		SessionID:    s.processor.SessionID(),
		TemplateName: res.TemplateName,
		Variants:     res.Variants,
		Error:        res.Err,
	}
	s.respondJSON(w, statusFor(res.Err), resp)
}

// statusFor maps a run outcome to an HTTP status.
func statusFor(catErr *core.CategorizedError) int {
	if catErr == nil {
		return http.StatusOK
	}
	switch catErr.Category {
	case core.ErrCatConfiguration:
		return http.StatusUnprocessableEntity
	case core.ErrCatTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		s.respondError(w, http.StatusNotFound, "metrics disabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"totals": s.metrics.Totals(),
		"agents": s.metrics.GetAgentMetrics(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotFound, "history disabled")
		return
	}

	var (
		entries []core.HistoryEntry
		err     error
	)
	if session := r.URL.Query().Get("session"); session != "" {
		entries, err = s.history.BySession(r.Context(), session)
	} else {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 0 {
				s.respondError(w, http.StatusBadRequest, "invalid limit")
				return
			}
		}
		entries, err = s.history.List(r.Context(), limit)
	}
	if err != nil {
		s.logger.Error("failed to read history", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if entries == nil {
		entries = []core.HistoryEntry{}
	}
	s.respondJSON(w, http.StatusOK, entries)
}
