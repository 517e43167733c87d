package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/smazurov/lightnode/internal/api/models"
	"github.com/smazurov/lightnode/internal/heart"
	"github.com/smazurov/lightnode/internal/pattern"
)

// MaxWrittenFrames caps the frames accepted by the write endpoint.
const MaxWrittenFrames = 255

func (s *Server) registerPatternRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-patterns",
		Method:      http.MethodGet,
		Path:        "/api/patterns",
		Summary:     "List Patterns",
		Description: "Names of the pattern files in the pattern directory",
		Tags:        []string{"patterns"},
		Errors:      []int{401, 500, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.PatternListResponse, error) {
		if s.options.Patterns == nil {
			return nil, huma.Error503ServiceUnavailable("Pattern store not configured")
		}
		names, err := s.options.Patterns.List()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list patterns", err)
		}
		return &models.PatternListResponse{
			Body: models.PatternListData{Patterns: names, Count: len(names)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "write-pattern",
		Method:      http.MethodPost,
		Path:        "/api/patterns",
		Summary:     "Write Pattern",
		Description: "Save frames as a new pattern file under a generated name and load it. Invalid hex colors are skipped.",
		Tags:        []string{"patterns"},
		Errors:      []int{400, 401, 500, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.WritePatternRequest) (*models.WritePatternResponse, error) {
		if s.options.Patterns == nil {
			return nil, huma.Error503ServiceUnavailable("Pattern store not configured")
		}

		p, skipped := s.buildPattern(input.Body.Frames)
		if p.Empty() {
			return nil, huma.Error400BadRequest("Pattern has no valid colors")
		}

		name := uuid.NewString() + ".txt"
		if err := s.options.Patterns.Save(name, p); err != nil {
			return nil, huma.Error500InternalServerError("Failed to save pattern", err)
		}

		resp := &models.WritePatternResponse{
			Body: models.WritePatternData{Name: name, Frames: p.Len(), Skipped: skipped},
		}
		if input.Body.Load != nil && !*input.Body.Load {
			return resp, nil
		}
		if _, err := s.sendDirective(ctx, heart.Load(name)); err != nil {
			return nil, err
		}
		resp.Body.Loaded = true
		return resp, nil
	})
}

// buildPattern turns request frames into a pattern normalized to the store's
// channel range. Frames are numbered in request order.
func (s *Server) buildPattern(frames []models.PatternFrame) (pattern.Pattern, int) {
	if len(frames) > MaxWrittenFrames {
		s.logger.Warn("Pattern truncated", "frames", len(frames), "kept", MaxWrittenFrames)
		frames = frames[:MaxWrittenFrames]
	}

	skipped := 0
	table := make(map[uint8]pattern.Frame, len(frames))
	for i, frame := range frames {
		out := make(pattern.Frame, len(frame.Colors))
		for _, c := range frame.Colors {
			color, err := pattern.ParseHex(c.Hex)
			if err != nil || c.Channel < 0 || c.Channel > 255 {
				s.logger.Warn("Skipping pattern color", "frame", i, "hex", c.Hex, "channel", c.Channel, "error", err)
				skipped++
				continue
			}
			out[uint8(c.Channel)] = color
		}
		if len(out) > 0 {
			table[uint8(i)] = out
		}
	}

	return pattern.New(table).Normalize(s.options.Patterns.Range()), skipped
}
