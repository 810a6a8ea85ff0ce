// Package api exposes the campaign pipeline over JSON HTTP. Stage calls run in
// the background; clients poll a campaign until it leaves THINKING or GENERATING.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"align-bot/internal/brand"
	"align-bot/internal/campaign"
	"align-bot/internal/pipeline"
	"align-bot/internal/session"
	"align-bot/internal/visual"
)

const maxBodyBytes = 1 << 20

type Options struct {
	Campaigns *session.Store
	// Stages configures every controller the server creates.
	Stages pipeline.Options
	// Context bounds controller lifetimes. Defaults to context.Background.
	Context context.Context
	Logger  *slog.Logger
}

type Server struct {
	campaigns *session.Store
	stages    pipeline.Options
	ctx       context.Context
	logger    *slog.Logger
}

type apiError struct {
	Error string `json:"error"`
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	campaigns := opts.Campaigns
	if campaigns == nil {
		campaigns = session.NewStore()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Server{
		campaigns: campaigns,
		stages:    opts.Stages,
		ctx:       ctx,
		logger:    logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, withLogging(s.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", s.handleHealth)
		r.Get("/presets", s.handlePresets)
		r.Post("/rules/resolve", s.handleResolveRule)

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", s.handleCreateCampaign)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCampaign)
				r.Delete("/", s.handleDeleteCampaign)
				r.Post("/start", s.handleRestartCampaign)
				r.Post("/approve", s.handleAction((*pipeline.Controller).Approve))
				r.Post("/refine", s.handleAction((*pipeline.Controller).Refine))
				r.Post("/reset", s.handleAction((*pipeline.Controller).NewCampaign))
			})
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "campaigns": s.campaigns.Len()})
}

type presetInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Rule string `json:"rule"`
}

type archetypeInfo struct {
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Presets     []presetInfo `json:"presets"`
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	var out []archetypeInfo
	for _, a := range brand.Archetypes() {
		info := archetypeInfo{Key: string(a), Name: brand.Label(a), Description: brand.Describe(a)}
		for _, p := range brand.Presets(a) {
			info.Presets = append(info.Presets, presetInfo{Key: string(p), Name: brand.Label(p), Rule: visual.Resolve(a, p)})
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

type resolveRequest struct {
	Archetype string `json:"archetype"`
	Preset    string `json:"preset"`
}

type resolveResponse struct {
	Rule   string `json:"rule"`
	Mapped bool   `json:"mapped"`
}

// handleResolveRule never fails on unknown values; they resolve to the fallback rule.
func (s *Server) handleResolveRule(w http.ResponseWriter, r *http.Request) {
	var in resolveRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	a := brand.Archetype(strings.ToUpper(strings.TrimSpace(in.Archetype)))
	p := brand.VisualPreset(strings.ToUpper(strings.TrimSpace(in.Preset)))
	rule, mapped := visual.Lookup(a, p)
	if !mapped {
		rule = visual.Fallback
	}
	writeJSON(w, http.StatusOK, resolveResponse{Rule: rule, Mapped: mapped})
}

type campaignRequest struct {
	Brand struct {
		Name        string `json:"name"`
		Archetype   string `json:"archetype"`
		Mission     string `json:"mission"`
		Tone        string `json:"tone"`
		Constraints string `json:"constraints"`
	} `json:"brand"`
	Preset         string `json:"preset"`
	Topic          string `json:"topic"`
	Context        string `json:"context"`
	TargetAudience string `json:"targetAudience"`
}

func (in campaignRequest) toRequest() (campaign.Request, error) {
	profile := brand.DefaultProfile()
	if name := strings.TrimSpace(in.Brand.Name); name != "" {
		profile.Name = name
	}
	if strings.TrimSpace(in.Brand.Archetype) != "" {
		a, err := brand.ParseArchetype(in.Brand.Archetype)
		if err != nil {
			return campaign.Request{}, err
		}
		profile.Archetype = a
	}
	profile.Mission = strings.TrimSpace(in.Brand.Mission)
	profile.Tone = strings.TrimSpace(in.Brand.Tone)
	profile.Constraints = strings.TrimSpace(in.Brand.Constraints)

	var preset brand.VisualPreset
	if strings.TrimSpace(in.Preset) != "" {
		p, err := brand.ParsePreset(in.Preset)
		if err != nil {
			return campaign.Request{}, err
		}
		preset = p
	}
	return campaign.NewRequest(profile, preset, in.Topic, in.Context, in.TargetAudience)
}

type campaignResponse struct {
	ID string `json:"id"`
	pipeline.Snapshot
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readCampaignRequest(w, r)
	if !ok {
		return
	}

	ctrl := pipeline.New(s.ctx, s.stages)
	id := s.campaigns.Add(ctrl)
	ctrl.Start(req)

	s.logger.Info("campaign created", "campaign_id", id, "archetype", req.Brand.Archetype, "preset", req.Preset)
	writeJSON(w, http.StatusAccepted, campaignResponse{ID: id.String(), Snapshot: ctrl.Snapshot()})
}

// handleRestartCampaign submits a revised request to a campaign back in INPUT.
func (s *Server) handleRestartCampaign(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	req, ok := s.readCampaignRequest(w, r)
	if !ok {
		return
	}
	if !ctrl.Start(req) {
		s.conflict(w, ctrl)
		return
	}
	writeJSON(w, http.StatusAccepted, campaignResponse{ID: id.String(), Snapshot: ctrl.Snapshot()})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, campaignResponse{ID: id.String(), Snapshot: ctrl.Snapshot()})
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || !s.campaigns.Delete(id) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "campaign not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAction(action func(*pipeline.Controller) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ctrl, ok := s.lookup(w, r)
		if !ok {
			return
		}
		if !action(ctrl) {
			s.conflict(w, ctrl)
			return
		}
		status := http.StatusOK
		snap := ctrl.Snapshot()
		if snap.State.Busy() {
			status = http.StatusAccepted
		}
		writeJSON(w, status, campaignResponse{ID: id.String(), Snapshot: snap})
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (uuid.UUID, *pipeline.Controller, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, apiError{Error: "campaign not found"})
		return uuid.Nil, nil, false
	}
	ctrl, ok := s.campaigns.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "campaign not found"})
		return uuid.Nil, nil, false
	}
	return id, ctrl, true
}

func (s *Server) readCampaignRequest(w http.ResponseWriter, r *http.Request) (campaign.Request, bool) {
	var in campaignRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return campaign.Request{}, false
	}
	req, err := in.toRequest()
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, apiError{Error: err.Error()})
		return campaign.Request{}, false
	}
	return req, true
}

func (s *Server) conflict(w http.ResponseWriter, ctrl *pipeline.Controller) {
	state := ctrl.Snapshot().State
	writeJSON(w, http.StatusConflict, apiError{Error: fmt.Sprintf("action not allowed in state %s", state)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"request_id", middleware.GetReqID(r.Context()),
				"dur_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
