package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/panelnode/internal/api/models"
)

// registerTaskRoutes registers the scheduler inspection endpoints.
func (s *Server) registerTaskRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/api/tasks",
		Summary:     "List Tasks",
		Description: "List every scheduled task with its priority, scheduler state and, for controllable tasks, run-state",
		Tags:        []string{"tasks"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.TaskListResponse, error) {
		tasks := s.panel.Tasks()
		return &models.TaskListResponse{
			Body: models.TaskListData{
				Tasks:    tasks,
				Count:    len(tasks),
				UptimeMs: s.panel.Uptime().Milliseconds(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/api/tasks/{name}",
		Summary:     "Get Task",
		Description: "Get a single task by name",
		Tags:        []string{"tasks"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.TaskRequest) (*models.TaskResponse, error) {
		for _, t := range s.panel.Tasks() {
			if t.Name == input.Name {
				return &models.TaskResponse{Body: t}, nil
			}
		}
		return nil, huma.Error404NotFound("Task not found: " + input.Name)
	})
}
