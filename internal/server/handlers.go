package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/interview-cli/internal/leadfile"
	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/report"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(r.Context()); err != nil {
			zap.L().Warn("server: health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var c model.Campaign
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		fail(w, r, err, "Campaign")
		return
	}
	if err := s.deps.Store.CreateCampaign(r.Context(), &c); err != nil {
		fail(w, r, err, "Campaign")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.deps.Store.ListCampaigns(r.Context())
	if err != nil {
		fail(w, r, err, "Campaign")
		return
	}
	if campaigns == nil {
		campaigns = []model.Campaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (s *Server) handleCampaignDetail(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Loader.Detail(r.Context(), chi.URLParam(r, "id"), reportOptions(r))
	if err != nil {
		fail(w, r, err, "Campaign")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type importRequest struct {
	Rows []model.RawRecord `json:"rows"`
}

func (s *Server) handleImportLeads(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)

	rows, err := s.readRows(r)
	if err != nil {
		if tooLarge(err) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Upload is too large."})
			return
		}
		fail(w, r, err, "Campaign")
		return
	}

	sum, err := s.deps.Ingester.Ingest(r.Context(), chi.URLParam(r, "id"), rows)
	if err != nil {
		fail(w, r, err, "Campaign")
		return
	}
	writeJSON(w, http.StatusCreated, sum)
}

func (s *Server) readRows(r *http.Request) ([]model.RawRecord, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.deps.MaxUploadBytes); err != nil {
			if tooLarge(err) {
				return nil, err
			}
			return nil, eris.Wrap(errInvalidBody, err.Error())
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, leadfile.ErrEmpty
		}
		defer file.Close() //nolint:errcheck
		return leadfile.Read(r.Context(), header.Filename, file)
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if tooLarge(err) {
			return nil, err
		}
		return nil, eris.Wrap(errInvalidBody, err.Error())
	}
	return req.Rows, nil
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	filter := model.LeadFilter{Status: model.LeadStatus(r.URL.Query().Get("status"))}
	if v := r.URL.Query().Get("match"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(w, "match must be true or false")
			return
		}
		filter.Match = &b
	}

	_, list, err := s.deps.Loader.Leads(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		fail(w, r, err, "Campaign")
		return
	}
	writeJSON(w, http.StatusOK, report.LeadViews(list, s.deps.PublicURL))
}

func (s *Server) handleExportLeads(w http.ResponseWriter, r *http.Request) {
	c, list, err := s.deps.Loader.Leads(r.Context(), chi.URLParam(r, "id"), model.LeadFilter{})
	if err != nil {
		fail(w, r, err, "Campaign")
		return
	}
	setCSVHeaders(w, report.LeadsFilename(c))
	if err := report.WriteLeadsCSV(w, list, s.deps.PublicURL); err != nil {
		zap.L().Error("server: write leads csv", zap.Error(err))
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	c, responses, err := s.deps.Loader.Responses(r.Context(), chi.URLParam(r, "id"), reportOptions(r))
	if err != nil {
		fail(w, r, err, "Campaign")
		return
	}
	if responses == nil {
		responses = []report.Response{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"campaign_id": c.ID,
		"questions":   c.Questions(),
		"count":       len(responses),
		"responses":   responses,
	})
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	c, responses, err := s.deps.Loader.Responses(r.Context(), chi.URLParam(r, "id"), reportOptions(r))
	if err != nil {
		fail(w, r, err, "Campaign")
		return
	}
	setCSVHeaders(w, report.ResponsesFilename(c))
	if err := report.WriteResponsesCSV(w, c, responses); err != nil {
		zap.L().Error("server: write responses csv", zap.Error(err))
	}
}

func (s *Server) handleResolveInterview(w http.ResponseWriter, r *http.Request) {
	session, err := s.deps.Access.Resolve(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		fail(w, r, err, "Interview")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleCompleteInterview(w http.ResponseWriter, r *http.Request) {
	changed, err := s.deps.Access.Complete(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		fail(w, r, err, "Interview")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "completed", "changed": changed})
}

type processRequest struct {
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleProcessInterview(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	out, err := s.deps.Processor.Process(r.Context(), req.ConversationID, chi.URLParam(r, "token"))
	if err != nil {
		fail(w, r, err, "Interview")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Signer.SignedURL(r.Context())
	if err != nil {
		fail(w, r, err, "Agent")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"signed_url": u})
}

func reportOptions(r *http.Request) report.Options {
	v, _ := strconv.ParseBool(r.URL.Query().Get("valid_only"))
	return report.Options{ValidOnly: v}
}

func setCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(filename, `"`, "")+`"`)
}
