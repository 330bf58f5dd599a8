package models

// Prompt is one entry of the ordered prompt list sent by the client.
// StartTime is optional; the first prompt defaults to 0 and the last
// segment runs to the end of the source. StartTimes are expected to be
// non-decreasing; a violation makes the affected segment degenerate and
// it is skipped during extraction.
type Prompt struct {
	Text      string   `json:"text" binding:"required"`
	StartTime *float64 `json:"startTime"`
}

// PromptVideoRequest is the JSON body for POST /create-prompt-video.
type PromptVideoRequest struct {
	VideoURL  string   `json:"videoUrl" binding:"required"`
	Prompts   []Prompt `json:"prompts"`
	UploadURL string   `json:"uploadUrl"`
	AudioURL  string   `json:"audioUrl"`
}

// PromptVideoResponse is returned when the result was pushed to a remote
// upload target instead of streamed back.
type PromptVideoResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// ErrorResponse is the single error shape for every failing endpoint.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Stage     string `json:"stage,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Segment is a time-bounded sub-clip cut from a source video.
// Duration is always positive; degenerate intervals never produce a Segment.
// Index and Label refer back to the originating prompt so callers can map
// segments to prompts even after skips.
type Segment struct {
	SourcePath string
	Path       string
	Index      int
	Label      string
	StartTime  float64
	EndTime    float64
	Duration   float64
}

// Layer types understood by the composition renderer.
const (
	LayerVideo           = "video"
	LayerAudio           = "audio"
	LayerTitleBackground = "title-background"
)

// Background describes the fill behind a title layer.
type Background struct {
	Type   string   `json:"type"`
	Colors []string `json:"colors"`
}

// Layer is one element of a clip, in the renderer's layer vocabulary.
// Path is set for video/audio layers, Text and Background for title layers.
type Layer struct {
	Type       string      `json:"type"`
	Path       string      `json:"path,omitempty"`
	Text       string      `json:"text,omitempty"`
	Background *Background `json:"background,omitempty"`
}

// Clip is one timed entry of a composition plan. Duration 0 means the
// renderer derives it from the clip's media layer.
type Clip struct {
	Duration float64 `json:"duration,omitempty"`
	Layers   []Layer `json:"layers"`
}

// CompositionPlan is the ordered recipe handed to the renderer. By
// convention it alternates title cards and media clips, but the renderer
// plays whatever sequence it is given.
type CompositionPlan []Clip

// Transition names the cross-segment transition applied between clips.
type Transition struct {
	Name string `json:"name"`
}

// RenderDefaults carries plan-wide renderer defaults.
type RenderDefaults struct {
	Transition Transition `json:"transition"`
}

// RenderSpec is the document serialized for the renderer binary.
type RenderSpec struct {
	OutPath         string          `json:"outPath"`
	Defaults        RenderDefaults  `json:"defaults"`
	KeepSourceAudio bool            `json:"keepSourceAudio"`
	Clips           CompositionPlan `json:"clips"`
}

// PlanItem is one (label, media) pair fed to the clip-list builder.
// AudioPath, when set, is overlaid on the emitted clip.
type PlanItem struct {
	Label     string
	MediaPath string
	AudioPath string
}
