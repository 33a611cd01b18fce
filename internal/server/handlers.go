package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ayashare/internal/logging"
	"ayashare/internal/logs"
	"ayashare/internal/media/audio"
	"ayashare/internal/pipeline"
	"ayashare/internal/services"
	"ayashare/internal/staging"
	"ayashare/internal/textutil"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
	outputVideoName  = "final_video.mp4"
	defaultLogLines  = 100
	maxLogLines      = 1000
)

var allowedAudioExts = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true, ".aac": true,
	".ogg": true, ".flac": true, ".aiff": true, ".aif": true,
}

// RunListResponse wraps history listings.
type RunListResponse struct {
	Runs []pipeline.Result `json:"runs"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleCreateRun stores the uploaded narration and runs the pipeline on it
// in a work directory private to the run.
func (s *Server) handleCreateRun(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)

	file, err := c.FormFile("audio")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(c, http.StatusRequestEntityTooLarge, "upload exceeds size limit", "")
			return
		}
		writeError(c, http.StatusBadRequest, "audio file is required (multipart field \"audio\")", "")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedAudioExts[ext] {
		writeError(c, http.StatusBadRequest, "unsupported audio format "+strconv.Quote(ext), services.KindInvalidArgument)
		return
	}

	req := s.opts.Template
	if endpoint := strings.TrimSpace(c.PostForm("endpoint")); endpoint != "" {
		req.TranscriptionEndpoint = endpoint
	}
	if req.TranscriptionEndpoint == "" {
		writeError(c, http.StatusBadRequest, "no transcription endpoint configured; pass \"endpoint\"", services.KindInvalidArgument)
		return
	}

	runID := uuid.NewString()
	uploadPath := filepath.Join(staging.UploadRunDir(s.opts.UploadDir, runID), textutil.StemToken(file.Filename, "narration")+ext)
	if err := os.MkdirAll(filepath.Dir(uploadPath), 0o755); err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "failed to store upload", "")
		return
	}
	if err := c.SaveUploadedFile(file, uploadPath); err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "failed to store upload", "")
		return
	}

	req.RunID = runID
	req.AudioPath = uploadPath
	req.AudioFormat = audio.FormatFromPath(uploadPath)
	req.WorkDir = staging.WorkRunDir(s.opts.WorkDir, runID)
	req.OutputVideoPath = filepath.Join(req.WorkDir, outputVideoName)

	s.logger.Info("run submitted",
		logging.String(logging.FieldRunID, runID),
		logging.String("filename", file.Filename),
		logging.Int64("size_bytes", file.Size),
	)

	s.runMu.Lock()
	result, err := s.runner.Run(c.Request.Context(), req)
	s.runMu.Unlock()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := defaultListLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(c, http.StatusBadRequest, "limit must be a positive integer", services.KindInvalidArgument)
			return
		}
		limit = min(parsed, maxListLimit)
	}
	if s.history == nil {
		c.JSON(http.StatusOK, RunListResponse{Runs: []pipeline.Result{}})
		return
	}
	runs, err := s.history.List(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "failed to read run history", services.Kind(err))
		return
	}
	if runs == nil {
		runs = []pipeline.Result{}
	}
	c.JSON(http.StatusOK, RunListResponse{Runs: runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	result, ok := s.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetVideo(c *gin.Context) {
	result, ok := s.lookupRun(c)
	if !ok {
		return
	}
	if result.Status != pipeline.StatusSuccess || result.VideoPath == "" {
		writeError(c, http.StatusNotFound, "run has no video", services.KindNotFound)
		return
	}
	if _, err := os.Stat(result.VideoPath); err != nil {
		writeError(c, http.StatusNotFound, "video file is gone", services.KindNotFound)
		return
	}
	c.FileAttachment(result.VideoPath, textutil.StemToken(result.AudioPath, result.RunID)+filepath.Ext(result.VideoPath))
}

// handleLogs pages through the newest daily log file. Without an offset it
// returns the last lines; the returned offset resumes from there.
func (s *Server) handleLogs(c *gin.Context) {
	opts := logs.Options{Offset: -1, Limit: defaultLogLines}
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || offset < 0 {
			writeError(c, http.StatusBadRequest, "offset must be a non-negative integer", services.KindInvalidArgument)
			return
		}
		opts.Offset = offset
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(c, http.StatusBadRequest, "limit must be a positive integer", services.KindInvalidArgument)
			return
		}
		opts.Limit = min(limit, maxLogLines)
	}
	if strings.TrimSpace(s.opts.LogDir) == "" {
		writeError(c, http.StatusNotFound, "log directory not configured", services.KindNotFound)
		return
	}
	path, err := logs.Latest(s.opts.LogDir, logging.LogFilePattern)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "failed to locate log file", "")
		return
	}
	if path == "" {
		c.JSON(http.StatusOK, logs.Chunk{Lines: []string{}})
		return
	}
	chunk, err := logs.Tail(c.Request.Context(), path, opts)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "failed to read log file", "")
		return
	}
	c.JSON(http.StatusOK, chunk)
}

func (s *Server) lookupRun(c *gin.Context) (pipeline.Result, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if s.history == nil || id == "" {
		writeError(c, http.StatusNotFound, "run not found", services.KindNotFound)
		return pipeline.Result{}, false
	}
	result, err := s.history.Get(c.Request.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		writeError(c, http.StatusNotFound, "run not found", services.KindNotFound)
		return pipeline.Result{}, false
	}
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "failed to read run history", services.Kind(err))
		return pipeline.Result{}, false
	}
	return result, true
}

func writeError(c *gin.Context, status int, message, kind string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message, Kind: kind})
}
