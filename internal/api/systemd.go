package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/panelnode/internal/api/models"
)

// registerSystemdRoutes exposes the unit status and a restart action. The
// routes exist only when a D-Bus manager was available at startup.
func (s *Server) registerSystemdRoutes() {
	if s.options.SystemdManager == nil {
		return
	}

	manager := s.options.SystemdManager

	huma.Register(s.api, huma.Operation{
		OperationID: "get-service-status",
		Method:      http.MethodGet,
		Path:        "/api/systemd/status",
		Summary:     "Service Status",
		Description: "Get the systemd status of the panelnode unit",
		Tags:        []string{"systemd"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.SystemdServiceStatusResponse, error) {
		status, err := manager.Status(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to get service status", err)
		}
		body := models.SystemdServiceStatus{
			Service:  status.Unit,
			Status:   status.ActiveState,
			SubState: status.SubState,
			MainPID:  status.MainPID,
			Restarts: status.Restarts,
		}
		if !status.Since.IsZero() {
			body.Since = status.Since.Format(time.RFC3339)
		}
		return &models.SystemdServiceStatusResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "restart-service",
		Method:      http.MethodPost,
		Path:        "/api/systemd/restart",
		Summary:     "Restart Service",
		Description: "Restart the panelnode unit. The response is sent before the process is replaced.",
		Tags:        []string{"systemd"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.SystemdServiceActionResponse, error) {
		if err := manager.Restart(ctx); err != nil {
			return nil, huma.Error500InternalServerError("Failed to restart service", err)
		}
		return &models.SystemdServiceActionResponse{
			Body: models.SystemdServiceAction{
				Service: manager.Unit(),
				Action:  "restart",
				Success: true,
			},
		}, nil
	})
}
