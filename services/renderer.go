package services

import (
	"context"
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/damechen/video-editing/apperr"
	"github.com/damechen/video-editing/models"
	"github.com/damechen/video-editing/utils"
)

// Renderer is the boundary to the external composition engine. It turns a
// composition plan into the engine's clip/layer JSON and invokes the
// engine binary; all pixel and audio work happens on the other side.
type Renderer struct {
	runner          utils.CommandRunner
	bin             string
	transitionName  string
	keepSourceAudio bool
}

// NewRenderer creates a renderer invoking bin with the given plan-wide
// defaults.
func NewRenderer(runner utils.CommandRunner, bin, transitionName string, keepSourceAudio bool) *Renderer {
	return &Renderer{
		runner:          runner,
		bin:             bin,
		transitionName:  transitionName,
		keepSourceAudio: keepSourceAudio,
	}
}

// Render writes the render spec into the workspace and runs the engine,
// producing the composed file at outPath.
func (r *Renderer) Render(ctx context.Context, plan models.CompositionPlan, ws *utils.Workspace, outPath string) error {
	const op = "renderer.Render"

	if len(plan) == 0 {
		return apperr.Render(op, nil, "composition plan is empty")
	}

	spec := models.RenderSpec{
		OutPath: outPath,
		Defaults: models.RenderDefaults{
			Transition: models.Transition{Name: r.transitionName},
		},
		KeepSourceAudio: r.keepSourceAudio,
		Clips:           plan,
	}

	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return apperr.Render(op, err, "failed to encode render spec")
	}

	specPath := ws.Path("render_spec.json")
	if err := os.WriteFile(specPath, data, 0644); err != nil {
		return apperr.Render(op, err, "failed to write render spec")
	}

	logrus.WithFields(logrus.Fields{
		"request_id": ws.RequestID,
		"clips":      len(plan),
		"out":        outPath,
	}).Info("Rendering composition")

	if _, err := r.runner.Run(ctx, r.bin, "--json", specPath); err != nil {
		return apperr.Render(op, err, "composition rendering failed")
	}

	return nil
}
