package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/panelnode/internal/api/models"
	"github.com/smazurov/panelnode/internal/node"
	"github.com/smazurov/panelnode/internal/periph"
)

// registerPanelRoutes registers display, peripheral and button endpoints.
func (s *Server) registerPanelRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-display",
		Method:      http.MethodGet,
		Path:        "/api/display",
		Summary:     "Get Display",
		Description: "Get the frame last presented on the status display",
		Tags:        []string{"display"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, _ *struct{}) (*models.DisplayResponse, error) {
		frame, ok := s.panel.Frame()
		if !ok {
			return nil, huma.Error404NotFound("No frame presented yet")
		}
		return &models.DisplayResponse{
			Body: models.DisplayData{
				Lines:     frame.Texts(),
				Sequence:  frame.Sequence,
				Presented: frame.Presented.Format(time.RFC3339),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-peripherals",
		Method:      http.MethodGet,
		Path:        "/api/peripherals",
		Summary:     "Get Peripherals",
		Description: "Get the active peripheral backend and its channels",
		Tags:        []string{"peripherals"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.PeripheralResponse, error) {
		ctrl := s.panel.Peripherals()
		ch := ctrl.Available()
		return &models.PeripheralResponse{
			Body: models.PeripheralData{
				Backend: ctrl.Backend(),
				Board:   periph.DetectBoard(),
				Outputs: ch.Outputs,
				PWM:     ch.PWM,
				Inputs:  ch.Inputs,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "press-button",
		Method:        http.MethodPost,
		Path:          "/api/buttons/{input}/press",
		Summary:       "Press Button",
		Description:   "Simulate a button press. The button task handles it on its next poll, exactly like a physical press. Holds shorter than one poll period plus a tick are lengthened; the response carries the hold applied.",
		Tags:          []string{"buttons"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 404, 501},
	}, func(_ context.Context, input *models.ButtonPressRequest) (*models.ButtonPressResponse, error) {
		hold, err := s.panel.Press(input.Input, time.Duration(input.HoldMs)*time.Millisecond)
		if err != nil {
			switch {
			case errors.Is(err, periph.ErrUnknownChannel):
				return nil, huma.Error404NotFound("Unknown input: "+input.Input, err)
			case errors.Is(err, node.ErrInjectUnsupported):
				return nil, huma.Error501NotImplemented("Backend does not accept injected input", err)
			default:
				return nil, huma.Error500InternalServerError("Failed to press button", err)
			}
		}

		applied := int(hold / time.Millisecond)
		s.logger.Info("Button press injected", "input", input.Input, "hold_ms", applied)
		return &models.ButtonPressResponse{
			Body: models.ButtonPressData{
				Input:  input.Input,
				HoldMs: applied,
			},
		}, nil
	})
}
