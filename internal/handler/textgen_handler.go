package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/service"
)

type generateTextRequest struct {
	Prompt string `json:"prompt"`
}

type generateTextResponse struct {
	Text string `json:"text"`
}

func generateTextHandler(svc *service.TextGenService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handler.GenerateText")
		defer span.End()

		var req generateTextRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleGenerationError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("prompt.length", len(req.Prompt)))

		gen, err := svc.Generate(ctx, req.Prompt)
		if err != nil {
			handleGenerationError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, generateTextResponse{Text: gen.Text})
	}
}
