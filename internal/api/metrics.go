package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/panelnode/internal/events"
	"github.com/smazurov/panelnode/internal/metrics/exporters"
)

// registerMetricsRoutes registers the per-task metrics SSE endpoint. Samples
// arrive from the SSE exporter whenever a task moves.
func (s *Server) registerMetricsRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "metrics-stream",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Metrics Server-Sent Events Stream",
		Description: "Real-time per-task metrics stream",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, exporters.EventTypes(), func(ctx context.Context, _ *struct{}, send sse.Sender) {
		stream := events.NewStream(16)
		events.Forward[events.TaskMetricsEvent](stream, s.eventBus)
		defer stream.Close()

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
