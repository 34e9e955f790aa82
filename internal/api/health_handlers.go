package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Server health",
		Description: "Probes the database and reports the search engine in use",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Collection statistics",
		Description: "Counts hobbies, entries, tags, shelves and media",
		Tags:        []string{"Stats"},
	}, s.handleGetStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "listActivity",
		Method:      http.MethodGet,
		Path:        "/api/v1/activity",
		Summary:     "List activity",
		Description: "Returns audit records, newest first",
		Tags:        []string{"Stats"},
	}, s.handleListActivity)
}

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// ComponentHealth is the probe result of one dependency.
type ComponentHealth struct {
	Status  string `json:"status" enum:"healthy,unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Probe duration"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is healthy only when every component is.
type HealthResponse struct {
	Status     string                     `json:"status" enum:"healthy,unhealthy"`
	Version    string                     `json:"version"`
	Components map[string]ComponentHealth `json:"components"`
}

type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	resp := HealthResponse{
		Status:  statusHealthy,
		Version: s.opts.Version,
		Components: map[string]ComponentHealth{
			"database": s.probeDatabase(ctx),
			"search":   {Status: statusHealthy, Message: s.opts.SearchIndex},
		},
	}
	for _, c := range resp.Components {
		if c.Status != statusHealthy {
			resp.Status = statusUnhealthy
		}
	}
	return &HealthOutput{Body: resp}, nil
}

// probeDatabase times a stats query bounded to two seconds.
func (s *Server) probeDatabase(ctx context.Context) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	began := time.Now()
	_, err := s.services.Stats.Stats(ctx)
	took := time.Since(began).Round(time.Microsecond).String()
	if err != nil {
		return ComponentHealth{Status: statusUnhealthy, Latency: took, Message: err.Error()}
	}
	return ComponentHealth{Status: statusHealthy, Latency: took}
}

// StatsOutput wraps the stats response for Huma.
type StatsOutput struct {
	Body *domain.Stats
}

func (s *Server) handleGetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	stats, err := s.services.Stats.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{Body: stats}, nil
}

// ListActivityInput contains parameters for listing activity.
type ListActivityInput struct {
	EntityType string `query:"entity_type" doc:"Filter by entity type"`
	EntityID   int64  `query:"entity_id" doc:"Filter by entity ID"`
	Limit      int    `query:"limit" minimum:"0" maximum:"500" doc:"Maximum records"`
}

// ActivityResponse contains a list of audit records.
type ActivityResponse struct {
	Activity []*domain.Activity `json:"activity" doc:"Audit records"`
}

// ActivityOutput wraps the activity response for Huma.
type ActivityOutput struct {
	Body ActivityResponse
}

func (s *Server) handleListActivity(ctx context.Context, input *ListActivityInput) (*ActivityOutput, error) {
	records, err := s.services.Activity.List(ctx, domain.ActivityFilter{
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		Limit:      input.Limit,
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*domain.Activity{}
	}
	return &ActivityOutput{Body: ActivityResponse{Activity: records}}, nil
}
