package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/attribution"
	"github.com/sells-group/attribution-cli/internal/flowgraph"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/store"
)

// Weightings reported in attribution responses.
const (
	weightingConversions = "conversions"
	weightingRevenue     = "revenue"
)

type attributionRequest struct {
	Model    string          `json:"model"`
	Journeys []model.Journey `json:"journeys"`
}

type attributionResponse struct {
	Model     string                      `json:"model"`
	Label     string                      `json:"label"`
	Weighting string                      `json:"weighting"`
	Journeys  int                         `json:"journeys"`
	Skipped   int                         `json:"skipped"`
	Total     float64                     `json:"total"`
	Credits   []attribution.ChannelCredit `json:"credits"`
}

type compareRequest struct {
	Models   []string        `json:"models"`
	Journeys []model.Journey `json:"journeys"`
}

type compareRow struct {
	Channel string             `json:"channel"`
	Credits map[string]float64 `json:"credits"`
}

type compareResponse struct {
	Models   []string     `json:"models"`
	Journeys int          `json:"journeys"`
	Skipped  int          `json:"skipped"`
	Rows     []compareRow `json:"rows"`
}

type graphRequest struct {
	Journeys []model.Journey `json:"journeys"`
}

type graphResponse struct {
	*flowgraph.Graph
	Stats flowgraph.Stats `json:"stats"`
}

type modelInfo struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			resp["status"] = "degraded"
			resp["store"] = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp["store"] = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listModels(w http.ResponseWriter, _ *http.Request) {
	models := make([]modelInfo, 0, len(attribution.Models()))
	for _, m := range attribution.Models() {
		models = append(models, modelInfo{Name: m.String(), Label: m.Label()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  models,
		"default": s.model.String(),
	})
}

// resolveModel parses name, falling back to the server default when blank.
func (s *Server) resolveModel(name string) (attribution.Model, error) {
	if strings.TrimSpace(name) == "" {
		return s.model, nil
	}
	return attribution.ParseModel(name)
}

func normalize(journeys []model.Journey) []model.Journey {
	out := make([]model.Journey, len(journeys))
	for i, j := range journeys {
		out[i] = j.Normalized()
	}
	return out
}

func (s *Server) attribute(w http.ResponseWriter, r *http.Request) {
	s.handleAttribution(w, r, weightingConversions)
}

func (s *Server) attributeRevenue(w http.ResponseWriter, r *http.Request) {
	s.handleAttribution(w, r, weightingRevenue)
}

func (s *Server) handleAttribution(w http.ResponseWriter, r *http.Request, weighting string) {
	var req attributionRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.resolveModel(req.Model)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := allocate(normalize(req.Journeys), m, weighting)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func allocate(journeys []model.Journey, m attribution.Model, weighting string) (*attributionResponse, error) {
	var (
		credits attribution.CreditMap
		err     error
	)
	if weighting == weightingRevenue {
		credits, err = attribution.AllocateRevenue(journeys, m)
	} else {
		credits, err = attribution.Allocate(journeys, m)
	}
	if err != nil {
		return nil, err
	}

	summary := model.Summarize(journeys)
	return &attributionResponse{
		Model:     m.String(),
		Label:     m.Label(),
		Weighting: weighting,
		Journeys:  summary.Journeys,
		Skipped:   summary.Skipped,
		Total:     credits.Total(),
		Credits:   credits.Ranked(),
	}, nil
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	models := make([]attribution.Model, 0, len(req.Models))
	for _, name := range req.Models {
		m, err := attribution.ParseModel(name)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		models = append(models, m)
	}

	journeys := normalize(req.Journeys)
	cmp, err := attribution.Compare(r.Context(), journeys, models...)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	summary := model.Summarize(journeys)
	resp := compareResponse{
		Models:   make([]string, len(cmp.Models)),
		Journeys: summary.Journeys,
		Skipped:  summary.Skipped,
		Rows:     make([]compareRow, 0, len(cmp.Channels)),
	}
	for i, m := range cmp.Models {
		resp.Models[i] = m.String()
	}
	for _, ch := range cmp.Channels {
		row := compareRow{Channel: ch, Credits: make(map[string]float64, len(cmp.Models))}
		for i, v := range cmp.Row(ch) {
			row.Credits[resp.Models[i]] = v
		}
		resp.Rows = append(resp.Rows, row)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	var req graphRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	g := s.builder.Build(normalize(req.Journeys))
	writeJSON(w, http.StatusOK, graphResponse{Graph: g, Stats: g.Stats()})
}

func (s *Server) listBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.store.ListBatches(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
}

func (s *Server) batchJourneys(r *http.Request) ([]model.Journey, error) {
	batch := chi.URLParam(r, "batch")
	journeys, err := s.store.ListJourneys(r.Context(), store.JourneyFilter{Batch: batch})
	if err != nil {
		return nil, eris.Wrapf(err, "server: load batch %s", batch)
	}
	return journeys, nil
}

func (s *Server) batchAttribution(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m, err := s.resolveModel(q.Get("model"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	weighting := weightingConversions
	switch q.Get("weighting") {
	case "", weightingConversions:
	case weightingRevenue:
		weighting = weightingRevenue
	default:
		s.fail(w, r, eris.Wrapf(errBadRequest, "server: unknown weighting %q", q.Get("weighting")))
		return
	}

	journeys, err := s.batchJourneys(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := allocate(journeys, m, weighting)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) batchGraph(w http.ResponseWriter, r *http.Request) {
	journeys, err := s.batchJourneys(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	g := s.builder.Build(journeys)
	writeJSON(w, http.StatusOK, graphResponse{Graph: g, Stats: g.Stats()})
}
