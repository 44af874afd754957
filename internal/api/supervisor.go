package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/procman/internal/api/models"
	"github.com/smazurov/procman/internal/supervisor"
)

func statusData(info supervisor.Info) models.StatusData {
	pids := info.PIDs
	if pids == nil {
		pids = []int{}
	}
	return models.StatusData{
		State:     string(info.State),
		Status:    info.Status,
		Mode:      info.Mode.String(),
		PIDs:      pids,
		Live:      len(pids),
		Desired:   info.Desired,
		Processes: info.Processes,
		MaxMemory: info.MaxMemory,
		Started:   info.Started,
	}
}

func (s *Server) registerSupervisorRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Pool Status",
		Description: "Get the supervisor state and the live worker pids",
		Tags:        []string{"supervisor"},
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		if s.supervisor == nil {
			return nil, huma.Error503ServiceUnavailable("Supervisor not running")
		}
		return &models.StatusResponse{Body: statusData(s.supervisor.Info())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "stop",
		Method:        http.MethodPost,
		Path:          "/api/stop",
		Summary:       "Stop",
		Description:   "Drain the pool: workers receive TSTP then TERM, and are interrupted after the shutdown timeout",
		Tags:          []string{"supervisor"},
		DefaultStatus: http.StatusAccepted,
	}, func(_ context.Context, _ *struct{}) (*models.StopResponse, error) {
		if s.supervisor == nil {
			return nil, huma.Error503ServiceUnavailable("Supervisor not running")
		}
		s.logger.Info("Stop requested via API")
		s.supervisor.Stop()
		return &models.StopResponse{
			Body: models.StopData{
				State:   string(s.supervisor.Info().State),
				Message: "Shutdown initiated",
			},
		}, nil
	})
}
