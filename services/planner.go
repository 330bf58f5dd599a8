package services

import (
	"math"
	"unicode/utf8"

	"github.com/damechen/video-editing/apperr"
	"github.com/damechen/video-editing/models"
)

// TitleCardPolicy controls how title-card durations are derived and
// whether a card appears after the final media clip. Injected per call
// site instead of hardcoded, since different compositions want different
// reading speeds and floors.
type TitleCardPolicy struct {
	MinSeconds       float64
	CharsPerSecond   int
	OmitTrailingCard bool
}

// Planner builds composition plans in the renderer's clip vocabulary.
type Planner struct {
	gradientColors []string
}

// NewPlanner creates a planner using the given title background gradient.
func NewPlanner(gradientColors []string) *Planner {
	return &Planner{gradientColors: gradientColors}
}

// TitleDuration derives a card's on-screen time from its text length:
// one second per CharsPerSecond characters, rounded up, floored at
// MinSeconds. Length is counted in runes so multibyte text reads at the
// same pace as ASCII.
func (p *Planner) TitleDuration(text string, policy TitleCardPolicy) float64 {
	d := math.Ceil(float64(utf8.RuneCountInString(text)) / float64(policy.CharsPerSecond))
	return math.Max(policy.MinSeconds, d)
}

// BuildPlan emits a title card followed by a media clip for each item.
// Deterministic: the same items and policy always produce the same plan.
func (p *Planner) BuildPlan(items []models.PlanItem, policy TitleCardPolicy) (models.CompositionPlan, error) {
	if len(items) == 0 {
		return nil, apperr.Validation("planner.BuildPlan", "no items to compose")
	}

	plan := make(models.CompositionPlan, 0, 2*len(items))
	for _, item := range items {
		// The overlay plays under the card; the media clip keeps its own
		// source audio.
		plan = append(plan, p.titleCard(item.Label, policy, item.AudioPath))
		plan = append(plan, p.mediaClip(item.MediaPath))
	}
	return plan, nil
}

// BuildInterleavedPlan builds the uniform-prompt variant: one leading
// card carrying the audio overlay, then the videos with the same card
// repeated between them. The card after the final video is dropped when
// the policy says so (a dangling caption with nothing following it).
func (p *Planner) BuildInterleavedPlan(label string, videos []string, audioPath string, policy TitleCardPolicy) (models.CompositionPlan, error) {
	if len(videos) == 0 {
		return nil, apperr.Validation("planner.BuildInterleavedPlan", "no videos to compose")
	}

	plan := models.CompositionPlan{p.titleCard(label, policy, audioPath)}
	for i, video := range videos {
		plan = append(plan, p.mediaClip(video))

		if i == len(videos)-1 && policy.OmitTrailingCard {
			break
		}
		plan = append(plan, p.titleCard(label, policy, ""))
	}
	return plan, nil
}

func (p *Planner) titleCard(text string, policy TitleCardPolicy, audioPath string) models.Clip {
	layers := []models.Layer{
		{
			Type: models.LayerTitleBackground,
			Text: text,
			Background: &models.Background{
				Type:   "linear-gradient",
				Colors: p.gradientColors,
			},
		},
	}
	if audioPath != "" {
		layers = append(layers, models.Layer{Type: models.LayerAudio, Path: audioPath})
	}

	return models.Clip{
		Duration: p.TitleDuration(text, policy),
		Layers:   layers,
	}
}

func (p *Planner) mediaClip(path string) models.Clip {
	return models.Clip{
		Layers: []models.Layer{
			{Type: models.LayerVideo, Path: path},
		},
	}
}
