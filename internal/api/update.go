package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/panelnode/internal/api/models"
	"github.com/smazurov/panelnode/internal/updater"
)

func (s *Server) registerUpdateRoutes() {
	svc := s.options.UpdateService
	if svc == nil {
		return
	}
	if !svc.Enabled() {
		s.registerDisabledUpdateRoutes(svc.DisabledReason())
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "check-updates",
		Method:      http.MethodGet,
		Path:        "/api/update/check",
		Summary:     "Check for Updates",
		Description: "Check if a newer release is published without downloading it",
		Tags:        []string{"update"},
		Errors:      []int{401, 404, 409, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateCheckResponse, error) {
		rel, err := svc.Check(ctx)
		if err != nil {
			return nil, mapUpdateError(err)
		}
		return &models.UpdateCheckResponse{
			Body: models.UpdateCheckData{
				CurrentVersion:  svc.Status().CurrentVersion,
				LatestVersion:   rel.Version,
				ReleaseNotes:    rel.Notes,
				ReleaseURL:      rel.URL,
				PublishedAt:     rel.PublishedAt,
				AssetSize:       rel.AssetSize,
				UpdateAvailable: rel.Newer,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-update-status",
		Method:      http.MethodGet,
		Path:        "/api/update/status",
		Summary:     "Get Update Status",
		Description: "Get the current update state and backup availability",
		Tags:        []string{"update"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.UpdateStatusResponse, error) {
		return &models.UpdateStatusResponse{Body: svc.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "apply-update",
		Method:        http.MethodPost,
		Path:          "/api/update/apply",
		Summary:       "Apply Update",
		Description:   "Download and install the latest release, then restart.",
		Tags:          []string{"update"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401, 404, 409, 500},
		Security:      withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.MessageResponse, error) {
		if err := svc.Apply(ctx); err != nil {
			return nil, mapUpdateError(err)
		}
		return models.Message("Update applied, restarting"), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "rollback-update",
		Method:        http.MethodPost,
		Path:          "/api/update/rollback",
		Summary:       "Rollback Update",
		Description:   "Restore the previous binary, then restart.",
		Tags:          []string{"update"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 404, 500},
		Security:      withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.MessageResponse, error) {
		if err := svc.Rollback(ctx); err != nil {
			return nil, mapUpdateError(err)
		}
		return models.Message("Rollback complete, restarting"), nil
	})
}

// registerDisabledUpdateRoutes answers every update route with 503.
func (s *Server) registerDisabledUpdateRoutes(reason string) {
	disabled := func(_ context.Context, _ *struct{}) (*struct{}, error) {
		return nil, huma.Error503ServiceUnavailable("Update service disabled: " + reason)
	}

	for _, op := range []huma.Operation{
		{OperationID: "check-updates", Method: http.MethodGet, Path: "/api/update/check", Summary: "Check for Updates"},
		{OperationID: "get-update-status", Method: http.MethodGet, Path: "/api/update/status", Summary: "Get Update Status"},
		{OperationID: "apply-update", Method: http.MethodPost, Path: "/api/update/apply", Summary: "Apply Update"},
		{OperationID: "rollback-update", Method: http.MethodPost, Path: "/api/update/rollback", Summary: "Rollback Update"},
	} {
		op.Description = op.Summary + " (disabled)"
		op.Tags = []string{"update"}
		op.Errors = []int{503}
		op.Security = withAuth()
		huma.Register(s.api, op, disabled)
	}
}

func mapUpdateError(err error) error {
	switch {
	case errors.Is(err, updater.ErrBusy):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, updater.ErrNoUpdate):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, updater.ErrNoRelease), errors.Is(err, updater.ErrNoBackup):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, updater.ErrDisabled):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}
