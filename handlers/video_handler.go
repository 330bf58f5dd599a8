package handlers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/damechen/video-editing/apperr"
	"github.com/damechen/video-editing/config"
	"github.com/damechen/video-editing/middleware"
	"github.com/damechen/video-editing/models"
	"github.com/damechen/video-editing/services"
	"github.com/damechen/video-editing/utils"
)

// VideoHandler handles the composition endpoints
type VideoHandler struct {
	cfg      *config.Config
	ffmpeg   *utils.FFmpeg
	splitter *services.Splitter
	concat   *services.Concatenator
	planner  *services.Planner
	renderer *services.Renderer
	transfer *services.Transfer
}

// NewVideoHandler wires the pipeline services over the given runner.
func NewVideoHandler(cfg *config.Config, runner utils.CommandRunner) *VideoHandler {
	ffmpeg := utils.NewFFmpeg(runner)
	profile := utils.EncodeProfile{
		VideoCodec:   cfg.VideoCodec,
		CRF:          cfg.VideoCRF,
		Preset:       cfg.VideoPreset,
		AudioCodec:   cfg.AudioCodec,
		AudioBitrate: cfg.AudioBitrate,
	}

	return &VideoHandler{
		cfg:      cfg,
		ffmpeg:   ffmpeg,
		splitter: services.NewSplitter(ffmpeg, profile, cfg.SplitConcurrency),
		concat:   services.NewConcatenator(ffmpeg, profile, cfg.ConcatReencode),
		planner:  services.NewPlanner(cfg.TitleGradientColors),
		renderer: services.NewRenderer(runner, cfg.RendererBin, cfg.TransitionName, cfg.KeepSourceAudio),
		transfer: services.NewTransfer(cfg.FetchTimeout),
	}
}

// Health handles GET / and GET /health
func (h *VideoHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Video Prompt Server is running",
	})
}

// ConcatVideos handles POST /concat-videos: joins the uploaded files in
// order and streams the result back.
func (h *VideoHandler) ConcatVideos(c *gin.Context) {
	requestID := c.GetString(middleware.RequestIDKey)
	logger := logrus.WithField("request_id", requestID)

	form, err := c.MultipartForm()
	if err != nil {
		h.respondError(c, requestID, apperr.Validation("handler.ConcatVideos", "Invalid multipart form: "+err.Error()))
		return
	}

	files := form.File["videos"]

	// All bounds are checked before any processing starts.
	switch {
	case len(files) == 0:
		h.respondError(c, requestID, apperr.Validation("handler.ConcatVideos", "No video files provided"))
		return
	case len(files) < 2:
		h.respondError(c, requestID, apperr.Validation("handler.ConcatVideos", "At least 2 videos are required for concatenation"))
		return
	case len(files) > h.cfg.MaxUploadFiles:
		h.respondError(c, requestID, apperr.Validation("handler.ConcatVideos",
			fmt.Sprintf("Too many files (max %d)", h.cfg.MaxUploadFiles)))
		return
	}
	for _, file := range files {
		if file.Size > h.cfg.MaxUploadBytes() {
			h.respondError(c, requestID, apperr.Validation("handler.ConcatVideos",
				fmt.Sprintf("File %s exceeds the %dMB limit", file.Filename, h.cfg.MaxUploadSizeMB)))
			return
		}
		if ct := file.Header.Get("Content-Type"); !strings.HasPrefix(ct, "video/") {
			h.respondError(c, requestID, apperr.Validation("handler.ConcatVideos", "Only video files are allowed"))
			return
		}
	}

	logger.WithField("files", len(files)).Info("Processing video files")

	ws, err := utils.NewWorkspace(h.cfg.TempDir, requestID)
	if err != nil {
		h.respondError(c, requestID, apperr.Internal("handler.ConcatVideos", err, "Failed to create workspace"))
		return
	}

	videoPaths := make([]string, 0, len(files))
	for _, file := range files {
		dest := ws.Path(fmt.Sprintf("%s-%s", uuid.NewString(), filepath.Base(file.Filename)))
		if err := c.SaveUploadedFile(file, dest); err != nil {
			ws.Cleanup()
			h.respondError(c, requestID, apperr.Internal("handler.ConcatVideos", err, "Failed to save uploaded file"))
			return
		}
		videoPaths = append(videoPaths, dest)
	}

	// Once started, the join runs to completion or failure regardless of
	// the client connection.
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.ExecTimeout)
	defer cancel()

	outPath := ws.Path(fmt.Sprintf("concatenated_%s.mp4", requestID))
	if err := h.concat.Concatenate(ctx, videoPaths, outPath); err != nil {
		ws.Cleanup()
		h.respondError(c, requestID, err)
		return
	}

	downloadName := fmt.Sprintf("concatenated_%d.mp4", time.Now().Unix())
	c.FileAttachment(outPath, downloadName)
	logger.Info("File sent successfully")

	// The response body may still be in flight; deletion waits out a
	// grace interval instead of racing the transfer.
	ws.CleanupAfter(h.cfg.CleanupGrace)
}

// CreatePromptVideo handles POST /create-prompt-video: fetches the source,
// splits it at the prompt start times, interleaves title cards and renders
// one composite video, which is pushed to the upload URL or streamed back.
func (h *VideoHandler) CreatePromptVideo(c *gin.Context) {
	requestID := c.GetString(middleware.RequestIDKey)
	logger := logrus.WithField("request_id", requestID)

	var req models.PromptVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, requestID, apperr.Validation("handler.CreatePromptVideo", "Invalid request: "+err.Error()))
		return
	}
	if len(req.Prompts) == 0 {
		h.respondError(c, requestID, apperr.Validation("handler.CreatePromptVideo", "Prompts array is required and cannot be empty"))
		return
	}
	for i, prompt := range req.Prompts {
		if prompt.Text == "" {
			h.respondError(c, requestID, apperr.Validation("handler.CreatePromptVideo",
				fmt.Sprintf("Prompt at index %d is missing text", i)))
			return
		}
	}

	logger.WithField("prompts", len(req.Prompts)).Info("Processing prompts")

	ws, err := utils.NewWorkspace(h.cfg.TempDir, requestID)
	if err != nil {
		h.respondError(c, requestID, apperr.Internal("handler.CreatePromptVideo", err, "Failed to create workspace"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.ExecTimeout)
	defer cancel()

	// Fetch the source video (and the optional audio overlay).
	sourcePath := ws.Path("source.mp4")
	if err := h.transfer.Fetch(ctx, req.VideoURL, sourcePath); err != nil {
		ws.Cleanup()
		h.respondError(c, requestID, err)
		return
	}

	width, height := h.ffmpeg.ProbeDimensions(ctx, sourcePath, h.cfg.FallbackWidth, h.cfg.FallbackHeight)
	logger.WithFields(logrus.Fields{"width": width, "height": height}).Info("Source video fetched")

	audioPath := ""
	if req.AudioURL != "" {
		audioPath = ws.Path("overlay_audio.mp3")
		if err := h.transfer.Fetch(ctx, req.AudioURL, audioPath); err != nil {
			ws.Cleanup()
			h.respondError(c, requestID, err)
			return
		}
	}

	// Split the source at the prompt start times.
	segments, err := h.splitter.Split(ctx, sourcePath, req.Prompts, ws)
	if err != nil {
		ws.Cleanup()
		h.respondError(c, requestID, err)
		return
	}
	if len(segments) == 0 {
		ws.Cleanup()
		h.respondError(c, requestID, apperr.Validation("handler.CreatePromptVideo", "No playable segments after splitting"))
		return
	}

	// Each retained segment becomes a title card plus its media clip.
	// The audio overlay, when present, plays under the opening card.
	items := make([]models.PlanItem, len(segments))
	for i, seg := range segments {
		items[i] = models.PlanItem{
			Label:     seg.Label,
			MediaPath: seg.Path,
		}
	}
	if audioPath != "" {
		items[0].AudioPath = audioPath
	}

	policy := services.TitleCardPolicy{
		MinSeconds:       h.cfg.TitleMinSeconds,
		CharsPerSecond:   h.cfg.TitleCharsPerSecond,
		OmitTrailingCard: h.cfg.TitleOmitTrailing,
	}
	plan, err := h.planner.BuildPlan(items, policy)
	if err != nil {
		ws.Cleanup()
		h.respondError(c, requestID, err)
		return
	}

	outPath := ws.Path(fmt.Sprintf("prompt_video_%s.mp4", requestID))
	if err := h.renderer.Render(ctx, plan, ws, outPath); err != nil {
		ws.Cleanup()
		h.respondError(c, requestID, err)
		return
	}

	if req.UploadURL != "" {
		if err := h.transfer.Upload(ctx, outPath, req.UploadURL); err != nil {
			ws.Cleanup()
			h.respondError(c, requestID, err)
			return
		}

		logger.Info("Upload completed successfully")
		// Upload confirmed; nothing left in flight, clean up now.
		ws.Cleanup()

		c.JSON(http.StatusOK, models.PromptVideoResponse{
			Success:   true,
			Message:   "Video created and uploaded successfully",
			RequestID: requestID,
		})
		return
	}

	c.FileAttachment(outPath, fmt.Sprintf("prompt_video_%d.mp4", time.Now().Unix()))
	logger.Info("File sent successfully")
	ws.CleanupAfter(h.cfg.CleanupGrace)
}

// respondError sends the single error shape for every failing endpoint.
// Callers clean their workspace before coming here.
func (h *VideoHandler) respondError(c *gin.Context, requestID string, err error) {
	logrus.WithError(err).WithField("request_id", requestID).Error("Request failed")

	c.JSON(apperr.HTTPStatus(err), models.ErrorResponse{
		Success:   false,
		Error:     err.Error(),
		Stage:     apperr.Stage(err),
		RequestID: requestID,
	})
}
