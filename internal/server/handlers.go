package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ternarybob/atsforge/internal/models"
)

type pipelineRunRequest struct {
	SkipDiscovery      bool `json:"skip_discovery"`
	SkipCrawl          bool `json:"skip_crawl"`
	SkipEnrichment     bool `json:"skip_enrichment"`
	SkipEmbeddings     bool `json:"skip_embeddings"`
	CrawlLimit         int  `json:"crawl_limit"`
	EnrichLimit        int  `json:"enrich_limit"`
	EmbeddingBatchSize int  `json:"embedding_batch_size"`
}

// handlePipelineRun launches a full Discovery -> Crawl -> Enrich -> Embed
// pass in the background through the Pipeline Orchestrator and returns
// the new run's id, or 409 if a full pipeline is already running. The
// body is decoded only to reject malformed JSON; its skip/limit fields
// are not applied.
func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req pipelineRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
	}

	run, err := s.app.Pipeline.StartFullPipelineAsync(s.app.DiscoverySources)
	if err != nil {
		s.app.Logger.Warn().Err(err).Msg("failed to start full pipeline")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": run.ID})
}

// handleStageRun launches a single pipeline stage, optionally sharded by
// ats_family (crawl/enrich only).
func (s *Server) handleStageRun(stage string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var body struct {
			ATSFamily string `json:"ats_family"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "malformed request body", http.StatusBadRequest)
				return
			}
		}

		switch stage {
		case "discovery":
			runs, err := s.app.Pipeline.RunDiscoveryStandalone(r.Context(), s.app.DiscoverySources)
			if err != nil {
				s.app.Logger.Warn().Err(err).Msg("discovery stage failed")
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			ids := make([]string, len(runs))
			for i, run := range runs {
				ids[i] = run.ID
			}
			writeJSON(w, http.StatusAccepted, map[string]any{"run_ids": ids})
			return
		case "embed":
			n, err := s.app.Pipeline.RunEmbeddingsStandalone(r.Context())
			if err != nil {
				s.app.Logger.Warn().Err(err).Msg("embeddings stage failed")
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"embedded": n})
			return
		case "maintain":
			run, err := s.app.Pipeline.RunMaintenanceStandalone(r.Context())
			if err != nil {
				s.app.Logger.Warn().Err(err).Msg("maintenance stage failed")
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"id": run.ID})
			return
		case "crawl":
			run, err := s.app.Pipeline.StartCrawlAsync(body.ATSFamily)
			if err != nil {
				s.app.Logger.Warn().Err(err).Msg("crawl stage failed to start")
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"id": run.ID})
			return
		case "enrich":
			run, err := s.app.Pipeline.StartEnrichAsync(body.ATSFamily)
			if err != nil {
				s.app.Logger.Warn().Err(err).Msg("enrich stage failed to start")
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"id": run.ID})
			return
		}

		http.Error(w, "unknown stage", http.StatusNotFound)
	}
}

type companyDiscoverRequest struct {
	Name       string `json:"name"`
	Domain     string `json:"domain"`
	CareersURL string `json:"careers_url"`
	WebsiteURL string `json:"website_url"`
}

// handleCompanyDiscover admits a single operator-supplied company
// candidate directly into the Discovery Queue, bypassing the Discovery
// Sources.
func (s *Server) handleCompanyDiscover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req companyDiscoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || (req.Domain == "" && req.CareersURL == "") {
		http.Error(w, "name and one of domain/careers_url are required", http.StatusBadRequest)
		return
	}

	q := &models.DiscoveryQueue{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Domain:     req.Domain,
		CareersURL: req.CareersURL,
		WebsiteURL: req.WebsiteURL,
		Source:     "manual",
		Status:     models.DiscoveryQueueStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.app.StorageManager.DiscoveryQueue().Insert(r.Context(), q); err != nil {
		s.app.Logger.Error().Err(err).Msg("failed to queue manual company discovery")
		http.Error(w, "failed to queue company", http.StatusInternalServerError)
		return
	}

	run := &models.Run{
		ID:        uuid.NewString(),
		Kind:      models.RunKindDiscovery,
		Source:    "manual",
		Status:    models.RunStatusQueued,
		StartedAt: time.Now().UTC(),
	}
	if err := s.app.StorageManager.Runs().Insert(r.Context(), run); err != nil {
		s.app.Logger.Error().Err(err).Msg("failed to record manual discovery run")
		http.Error(w, "failed to queue run", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": run.ID, "queue_id": q.ID})
}

// handleRunByID serves GET /admin/runs/{id} and POST /admin/runs/{id}/cancel.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/admin/runs/")
	if path == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}

	if id, ok := strings.CutSuffix(path, "/cancel"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.cancelRun(w, r, id)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.getRun(w, r, path)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request, id string) {
	run, err := s.app.StorageManager.Runs().Get(r.Context(), id)
	if err != nil {
		s.app.Logger.Error().Err(err).Str("run_id", id).Msg("failed to load run")
		http.Error(w, "failed to load run", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request, id string) {
	run, err := s.app.StorageManager.Runs().Get(r.Context(), id)
	if err != nil {
		s.app.Logger.Error().Err(err).Str("run_id", id).Msg("failed to load run for cancel")
		http.Error(w, "failed to load run", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	run.Status = models.RunStatusCancelled
	if err := s.app.StorageManager.Runs().Update(r.Context(), run); err != nil {
		s.app.Logger.Error().Err(err).Str("run_id", id).Msg("failed to cancel run")
		http.Error(w, "failed to cancel run", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
