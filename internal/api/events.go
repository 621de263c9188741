package api

import (
	"context"
	"maps"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/panelnode/internal/events"
	"github.com/smazurov/panelnode/internal/metrics/exporters"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time event stream for task run-state changes, button edges and display frames",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func() map[string]any {
		eventTypes := map[string]any{
			"task-state-changed": events.TaskStateChangedEvent{},
			"button-edge":        events.ButtonEdgeEvent{},
			"display-frame":      events.DisplayFrameEvent{},
		}

		maps.Copy(eventTypes, exporters.EventTypes())

		return eventTypes
	}(), func(ctx context.Context, _ *struct{}, send sse.Sender) {
		stream := events.NewStream(32)
		events.Forward[events.TaskStateChangedEvent](stream, s.eventBus)
		events.Forward[events.ButtonEdgeEvent](stream, s.eventBus)
		events.Forward[events.DisplayFrameEvent](stream, s.eventBus)
		events.Forward[events.TaskMetricsEvent](stream, s.eventBus)
		defer func() {
			stream.Close()
			if n := stream.Dropped(); n > 0 {
				s.logger.Debug("SSE client fell behind", "stream", "events", "dropped", n)
			}
		}()

		// Send the current screen so clients start with something to show
		if s.panel != nil {
			if frame, ok := s.panel.Frame(); ok {
				if err := send.Data(events.DisplayFrameEvent{
					Lines:     frame.Texts(),
					Sequence:  frame.Sequence,
					Timestamp: frame.Presented.Format(time.RFC3339),
				}); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-stream.C():
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
