package server

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/ppiankov/venuescope/internal/explain"
	"github.com/ppiankov/venuescope/internal/model"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// explanationRequest is the body of POST /v1/explanations
type explanationRequest struct {
	Abstract string       `json:"abstract" validate:"required,min=50,max=20000"`
	VenueID  string       `json:"venue_id" validate:"required,max=200"`
	Venue    venueContext `json:"venue" validate:"required"`
}

type venueContext struct {
	Name        string   `json:"name" validate:"required,max=500"`
	Publisher   string   `json:"publisher" validate:"max=500"`
	Topics      []string `json:"topics" validate:"max=25,dive,max=200"`
	Category    string   `json:"category" validate:"omitempty,oneof=top_tier broad_audience niche emerging none"`
	MatchReason string   `json:"match_reason" validate:"max=500"`
	OpenAccess  bool     `json:"open_access"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return false
	}
	return true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var q model.ManuscriptQuery
	if !decode(w, r, &q) {
		return
	}

	resp, err := s.searcher.Search(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExplanation(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing user identity")
		return
	}

	var body explanationRequest
	if !decode(w, r, &body) {
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	res, err := s.explainer.GetOrCreate(r.Context(), explain.Request{
		Abstract: body.Abstract,
		VenueID:  body.VenueID,
		Venue: explain.VenueContext{
			Name:        body.Venue.Name,
			Publisher:   body.Venue.Publisher,
			Topics:      body.Venue.Topics,
			Category:    body.Venue.Category,
			MatchReason: body.Venue.MatchReason,
			OpenAccess:  body.Venue.OpenAccess,
		},
		User: user,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ExplanationResponse{
		Explanation:    res.Explanation,
		IsAIGenerated:  res.IsAIGenerated,
		Cached:         res.Cached,
		RemainingToday: res.Remaining,
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	for _, name := range names {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(names))
		}
		if err := s.checks[name](r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the error taxonomy onto HTTP statuses
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
	case errors.Is(err, model.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, "quota_exceeded", "daily explanation quota exceeded")
	case errors.Is(err, model.ErrGenerationFailed):
		writeError(w, http.StatusServiceUnavailable, "generation_failed", "explanation could not be generated, try again later")
	case errors.Is(err, model.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "bibliographic catalog is unreachable")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write
		s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request cancelled")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fe.Namespace() + " failed " + fe.Tag() + " validation"
	}
	return err.Error()
}
