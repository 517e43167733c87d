package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lightnode/internal/api/models"
	"github.com/smazurov/lightnode/internal/device"
	"github.com/smazurov/lightnode/internal/heart"
)

// registerLightRoutes registers the directive endpoints and the status read model.
func (s *Server) registerLightRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "control-lights",
		Method:      http.MethodPost,
		Path:        "/api/lights/control",
		Summary:     "Control Animation",
		Description: "Stop (off), resume (on) or load a pattern (load) in the effect loop",
		Tags:        []string{"lights"},
		Errors:      []int{400, 401, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.ControlRequest) (*models.DirectiveResponse, error) {
		d, err := heart.ParseMode(input.Body.Mode, input.Body.Pattern)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid control request", err)
		}
		return s.sendDirective(ctx, d)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-light-state",
		Method:      http.MethodPost,
		Path:        "/api/lights/state",
		Summary:     "Set Light State",
		Description: "Turn the lights on or off directly. The animation is held until the next control request.",
		Tags:        []string{"lights"},
		Errors:      []int{401, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.StateRequest) (*models.DirectiveResponse, error) {
		cmd := device.Off()
		if input.Body.On {
			cmd = device.On()
		}
		return s.sendDirective(ctx, heart.Show(cmd))
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-light-color",
		Method:      http.MethodPost,
		Path:        "/api/lights/color",
		Summary:     "Show Basic Color",
		Description: "Show red, green or blue directly. The animation is held until the next control request.",
		Tags:        []string{"lights"},
		Errors:      []int{400, 401, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.ColorRequest) (*models.DirectiveResponse, error) {
		basic, err := device.ParseBasicColor(input.Body.Color)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid color", err)
		}
		return s.sendDirective(ctx, heart.Show(device.Basic(basic)))
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "reconnect-lights",
		Method:      http.MethodPost,
		Path:        "/api/lights/reconnect",
		Summary:     "Reconnect Device",
		Description: "Drop the device handle and reconnect on the next tick, ignoring the cooldown",
		Tags:        []string{"lights"},
		Errors:      []int{401, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.DirectiveResponse, error) {
		return s.sendDirective(ctx, heart.Reconnect())
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-light-status",
		Method:      http.MethodGet,
		Path:        "/api/lights/status",
		Summary:     "Light Status",
		Description: "Latest animation and device state reported by the engine",
		Tags:        []string{"lights"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.StatusResponse, error) {
		return &models.StatusResponse{Body: s.status.Snapshot()}, nil
	})
}

// sendDirective queues d, giving up after the configured send timeout.
func (s *Server) sendDirective(ctx context.Context, d heart.Directive) (*models.DirectiveResponse, error) {
	if s.options.Control == nil {
		return nil, huma.Error503ServiceUnavailable("Effect loop is not running")
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.options.SendTimeout)
	defer cancel()

	if err := s.options.Control.Send(sendCtx, d); err != nil {
		s.logger.Warn("Failed to queue directive", "directive", d.String(), "error", err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, heart.ErrMailboxFull) {
			return nil, huma.Error503ServiceUnavailable("Directive mailbox is full", err)
		}
		return nil, huma.Error503ServiceUnavailable("Failed to queue directive", err)
	}

	s.logger.Debug("Directive queued", "directive", d.String())
	return &models.DirectiveResponse{Body: models.DirectiveData{Directive: d.String()}}, nil
}
