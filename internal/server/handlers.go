package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"opldock/internal/artwork"
	"opldock/internal/devices"
	"opldock/internal/format"
	"opldock/internal/gameid"
	"opldock/internal/importer"
	"opldock/internal/library"
	"opldock/internal/logging"
	"opldock/internal/manifest"
	"opldock/internal/target"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listDevices(c *gin.Context) {
	listing, err := devices.List(c.Request.Context())
	if err != nil {
		failure(c, http.StatusInternalServerError, "could not list block devices",
			map[string]any{"error": err.Error()}, "check_lsblk_availability", nil)
		return
	}
	targets := make([]devices.Device, 0, len(listing))
	for _, device := range listing {
		if device.UsableTarget() {
			targets = append(targets, device)
		}
	}
	success(c, "completed", "device listing ready", map[string]any{
		"devices": listing,
		"targets": targets,
	}, "choose_target_then_validate", nil)
}

type validateTargetRequest struct {
	TargetPath    string `json:"target_path" binding:"required"`
	EnsureFolders *bool  `json:"ensure_folders"`
}

func (s *Server) validateTarget(c *gin.Context) {
	var req validateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid request body",
			map[string]any{"error": err.Error()}, "fix_request_and_retry", nil)
		return
	}

	var steps []importer.Step
	addStep := func(state, status, message string, details map[string]any) {
		step := importer.Step{State: state, Status: status, Message: message}
		if len(details) > 0 {
			step.Details = details
		}
		steps = append(steps, step)
	}

	dir, err := target.Resolve(req.TargetPath)
	if err != nil {
		failure(c, statusFor(err), err.Error(), map[string]any{}, nextActionFor(err), steps)
		return
	}
	addStep("validating_target", "info", "checking target path", map[string]any{"target": dir})

	if err := target.ValidateAccess(dir); err != nil {
		addStep("validating_target", "error", err.Error(), nil)
		failure(c, statusFor(err), "target validation failed",
			map[string]any{"target": dir, "reason": err.Error()}, nextActionFor(err), steps)
		return
	}

	var created []string
	if req.EnsureFolders == nil || *req.EnsureFolders {
		var missing []string
		missing, created, err = target.EnsureFolders(dir)
		if err != nil {
			addStep("ensuring_structure", "error", err.Error(), nil)
			failure(c, statusFor(err), "invalid target structure",
				map[string]any{"error": err.Error()}, nextActionFor(err), steps)
			return
		}
		addStep("ensuring_structure", "success", "required folders are ready",
			map[string]any{"missing_before": missing, "created": created})
	}

	addStep("validated", "success", "target is ready", nil)
	success(c, "validated", "target path is valid and ready", map[string]any{
		"target":           dir,
		"required_folders": target.RequiredFolders,
		"existing":         target.Existing(dir),
		"created":          created,
	}, "ready_to_import", steps)
}

type formatTargetRequest struct {
	TargetPath    string `json:"target_path" binding:"required"`
	ConfirmPhrase string `json:"confirm_phrase" binding:"required"`
	VolumeLabel   string `json:"volume_label"`
}

func (s *Server) formatTarget(c *gin.Context) {
	var req formatTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid request body",
			map[string]any{"error": err.Error()}, "fix_request_and_retry", nil)
		return
	}

	result, err := s.formatter.Format(c.Request.Context(), format.Request{
		TargetPath:    req.TargetPath,
		ConfirmPhrase: req.ConfirmPhrase,
		VolumeLabel:   req.VolumeLabel,
	})
	if err != nil {
		failure(c, statusFor(err), err.Error(), map[string]any{}, nextActionFor(err), nil)
		return
	}

	success(c, "completed", "usb formatted and prepared successfully", map[string]any{
		"target":  result.Mountpoint,
		"label":   result.Label,
		"device":  result.Device,
		"created": result.Created,
	}, "ready_to_import", nil)
}

func (s *Server) importISOs(c *gin.Context) {
	targetPath := strings.TrimSpace(c.PostForm("target_path"))
	if targetPath == "" {
		failure(c, http.StatusBadRequest, "target_path is required",
			map[string]any{}, "fix_request_and_retry", nil)
		return
	}
	overwrite, _ := strconv.ParseBool(c.DefaultPostForm("overwrite", "false"))

	form, err := c.MultipartForm()
	if err != nil {
		failure(c, http.StatusBadRequest, "invalid multipart body",
			map[string]any{"error": err.Error()}, "fix_request_and_retry", nil)
		return
	}
	files := form.File["files"]

	sources := make([]importer.Source, 0, len(files))
	for _, header := range files {
		sources = append(sources, multipartSource(header))
	}

	result := s.pipeline.Run(importer.Request{
		TargetPath: targetPath,
		Overwrite:  overwrite,
		Sources:    sources,
	})
	if result.Err != nil {
		failure(c, statusFor(result.Err), result.Message, result.Details, nextActionFor(result.Err), result.Steps)
		return
	}
	success(c, result.State, result.Message, result.Details, "done", result.Steps)
}

func multipartSource(header *multipart.FileHeader) importer.Source {
	return importer.Source{
		Name: header.Filename,
		Open: func() (io.ReadCloser, error) { return header.Open() },
	}
}

type resolveIDRequest struct {
	TargetPath     string `json:"target_path"`
	GameName       string `json:"game_name"`
	SourceFilename string `json:"source_filename"`
}

func (s *Server) resolveID(c *gin.Context) {
	var req resolveIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid request body",
			map[string]any{"error": err.Error()}, "fix_request_and_retry", nil)
		return
	}

	gameName, err := gameid.DeriveName(req.GameName, req.SourceFilename)
	if err != nil {
		failure(c, http.StatusBadRequest, err.Error(), map[string]any{}, "fix_request_and_retry", nil)
		return
	}

	var dir string
	if strings.TrimSpace(req.TargetPath) != "" {
		dir, err = target.Resolve(req.TargetPath)
		if err != nil {
			failure(c, statusFor(err), err.Error(), map[string]any{}, nextActionFor(err), nil)
			return
		}
	}

	resolution := s.resolver.Resolve(gameid.Request{
		TargetDir:      dir,
		GameName:       gameName,
		SourceFilename: req.SourceFilename,
	})
	success(c, "completed", "game id resolved", map[string]any{
		"game_id":           resolution.ID,
		"generated_game_id": resolution.Generated,
		"id_source":         resolution.Source,
		"game_name":         gameName,
	}, "done", nil)
}

type upsertManifestRequest struct {
	TargetPath          string `json:"target_path" binding:"required"`
	SourceFilename      string `json:"source_filename"`
	GameName            string `json:"game_name"`
	GameID              string `json:"game_id" binding:"required"`
	IDSource            string `json:"id_source"`
	TargetFolder        string `json:"target_folder"`
	DestinationFilename string `json:"destination_filename" binding:"required"`
}

func (s *Server) upsertManifest(c *gin.Context) {
	var req upsertManifestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid request body",
			map[string]any{"error": err.Error()}, "fix_request_and_retry", nil)
		return
	}

	dir, err := target.Resolve(req.TargetPath)
	if err != nil {
		failure(c, statusFor(err), err.Error(), map[string]any{}, nextActionFor(err), nil)
		return
	}
	id, err := gameid.Normalize(req.GameID)
	if err != nil {
		failure(c, http.StatusBadRequest, err.Error(), map[string]any{}, "fix_request_and_retry", nil)
		return
	}

	idSource := strings.TrimSpace(req.IDSource)
	if idSource == "" {
		idSource = gameid.SourceManifest
	}
	if err := s.store.Upsert(dir, manifest.UpsertFields{
		SourceFilename:      req.SourceFilename,
		GameName:            req.GameName,
		GameID:              id,
		IDSource:            idSource,
		TargetFolder:        req.TargetFolder,
		DestinationFilename: req.DestinationFilename,
	}); err != nil {
		failure(c, statusFor(err), "could not update manifest",
			map[string]any{"error": err.Error()}, nextActionFor(err), nil)
		return
	}
	success(c, "completed", "manifest entry saved", map[string]any{
		"game_id":       id,
		"manifest_path": manifest.Path(dir),
	}, "done", nil)
}

type artSearchRequest struct {
	TargetPath     string `json:"target_path"`
	GameName       string `json:"game_name"`
	SourceFilename string `json:"source_filename"`
	MaxResults     int    `json:"max_results"`
}

func (s *Server) searchArt(c *gin.Context) {
	var req artSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid request body",
			map[string]any{"error": err.Error()}, "fix_request_and_retry", nil)
		return
	}
	if s.rawg == nil {
		failure(c, http.StatusBadRequest, "art search is not configured",
			map[string]any{}, "set_rawg_api_key_then_retry", nil)
		return
	}
	maxResults := req.MaxResults
	if maxResults < 1 || maxResults > 10 {
		maxResults = 10
	}

	gameQuery, err := gameid.DeriveName(req.GameName, req.SourceFilename)
	if err != nil {
		failure(c, http.StatusBadRequest, err.Error(), map[string]any{}, "fix_request_and_retry", nil)
		return
	}

	var dir string
	if strings.TrimSpace(req.TargetPath) != "" {
		dir, err = target.Resolve(req.TargetPath)
		if err != nil {
			failure(c, statusFor(err), err.Error(), map[string]any{}, nextActionFor(err), nil)
			return
		}
	}
	resolution := s.resolver.Resolve(gameid.Request{
		TargetDir:      dir,
		GameName:       gameQuery,
		SourceFilename: req.SourceFilename,
	})

	query := gameQuery + " PS2 cover art"
	cacheKey := artwork.Key("rawg", resolution.ID, query, maxResults)

	details := func(candidates []artwork.Candidate, cacheHit bool) map[string]any {
		return map[string]any{
			"game_id":           resolution.ID,
			"generated_game_id": resolution.Generated,
			"id_source":         resolution.Source,
			"game_query":        gameQuery,
			"art_types":         artwork.Types,
			"candidates":        candidates,
			"cache_hit":         cacheHit,
			"provider_used":     "rawg",
		}
	}

	if cached, ok := s.cache.Get(cacheKey); ok {
		success(c, "searching_art", "art candidates ready for preview",
			details(cached, true), "preview_and_select_images", []importer.Step{{
				State: "searching_art", Status: "success",
				Message: "loaded art candidates from cache",
				Details: map[string]any{"count": len(cached), "provider": "rawg"},
			}})
		return
	}

	allowed, reason, retryAfter := s.limiter.Allow(c.ClientIP())
	if !allowed {
		respond(c, http.StatusTooManyRequests, envelope{
			Status:     "error",
			State:      importer.StateFailed,
			Message:    reason,
			Details:    map[string]any{"retry_after_seconds": retryAfter},
			NextAction: "wait_then_retry",
		})
		return
	}

	candidates, err := s.rawg.Search(c.Request.Context(), query, maxResults)
	if err != nil {
		failure(c, http.StatusBadRequest, err.Error(),
			map[string]any{}, "check_api_config_or_retry", nil)
		return
	}
	if len(candidates) == 0 {
		failure(c, http.StatusNotFound, "no art candidates found",
			map[string]any{"query": query}, "try_another_game_name", nil)
		return
	}
	s.cache.Put(cacheKey, candidates)

	success(c, "searching_art", "art candidates ready for preview",
		details(candidates, false), "preview_and_select_images", []importer.Step{{
			State: "searching_art", Status: "success",
			Message: "art candidates found",
			Details: map[string]any{"count": len(candidates)},
		}})
}

type artSaveRequest struct {
	TargetPath     string              `json:"target_path" binding:"required"`
	GameName       string              `json:"game_name"`
	SourceFilename string              `json:"source_filename"`
	Selections     []artwork.Selection `json:"selections"`
}

func (s *Server) saveArtAuto(c *gin.Context) {
	var req artSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid request body",
			map[string]any{"error": err.Error()}, "fix_request_and_retry", nil)
		return
	}
	if len(req.Selections) == 0 {
		failure(c, http.StatusBadRequest, "no selected images",
			map[string]any{}, "select_images_from_preview", nil)
		return
	}

	dir, resolution, ok := s.prepareArtTarget(c, req.TargetPath, req.GameName, req.SourceFilename)
	if !ok {
		return
	}

	saved, skipped, err := s.saver.SaveAuto(c.Request.Context(), dir, resolution.ID, req.Selections)
	if err != nil {
		failure(c, statusFor(err), err.Error(),
			map[string]any{"saved": saved}, nextActionFor(err), nil)
		return
	}
	success(c, "completed", "selected auto art saved", map[string]any{
		"game_id":            resolution.ID,
		"generated_game_id":  resolution.Generated,
		"id_source":          resolution.Source,
		"saved":              saved,
		"skipped_duplicates": skipped,
	}, "done", nil)
}

func (s *Server) uploadArtManual(c *gin.Context) {
	targetPath := strings.TrimSpace(c.PostForm("target_path"))
	if targetPath == "" {
		failure(c, http.StatusBadRequest, "target_path is required",
			map[string]any{}, "fix_request_and_retry", nil)
		return
	}

	dir, resolution, ok := s.prepareArtTarget(c, targetPath, c.PostForm("game_name"), c.PostForm("source_filename"))
	if !ok {
		return
	}

	uploads := make(map[string]artwork.Upload)
	for _, artType := range artwork.Types {
		header, err := c.FormFile(strings.ToLower(artType))
		if err != nil || header.Filename == "" {
			continue
		}
		uploads[artType] = artwork.Upload{
			Filename: header.Filename,
			Open:     func() (io.ReadCloser, error) { return header.Open() },
		}
	}

	saved, err := s.saver.SaveManual(dir, resolution.ID, uploads)
	if err != nil {
		failure(c, statusFor(err), err.Error(), map[string]any{}, nextActionFor(err), nil)
		return
	}
	success(c, "completed", "manual art upload completed", map[string]any{
		"game_id":           resolution.ID,
		"generated_game_id": resolution.Generated,
		"id_source":         resolution.Source,
		"saved":             saved,
	}, "done", nil)
}

// prepareArtTarget validates the target, makes sure the ART folder exists,
// and resolves the game identity for art endpoints. On failure it has
// already written the error response.
func (s *Server) prepareArtTarget(c *gin.Context, targetPath, gameName, sourceFilename string) (string, gameid.Resolution, bool) {
	dir, err := target.Resolve(targetPath)
	if err != nil {
		failure(c, statusFor(err), err.Error(), map[string]any{}, nextActionFor(err), nil)
		return "", gameid.Resolution{}, false
	}
	if err := target.ValidateAccess(dir); err != nil {
		failure(c, statusFor(err), "target validation failed",
			map[string]any{"target": dir, "reason": err.Error()}, nextActionFor(err), nil)
		return "", gameid.Resolution{}, false
	}
	if _, _, err := target.EnsureFolders(dir); err != nil {
		failure(c, statusFor(err), "invalid target structure",
			map[string]any{"error": err.Error()}, nextActionFor(err), nil)
		return "", gameid.Resolution{}, false
	}

	query, err := gameid.DeriveName(gameName, sourceFilename)
	if err != nil {
		failure(c, http.StatusBadRequest, err.Error(), map[string]any{}, "fix_request_and_retry", nil)
		return "", gameid.Resolution{}, false
	}
	resolution := s.resolver.Resolve(gameid.Request{
		TargetDir:      dir,
		GameName:       query,
		SourceFilename: sourceFilename,
	})
	return dir, resolution, true
}

type scanGamesRequest struct {
	TargetPath string `json:"target_path" binding:"required"`
}

func (s *Server) scanGames(c *gin.Context) {
	var req scanGamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid request body",
			map[string]any{"error": err.Error()}, "fix_request_and_retry", nil)
		return
	}

	games, err := s.library.Scan(req.TargetPath)
	if err != nil {
		failure(c, statusFor(err), err.Error(), map[string]any{}, nextActionFor(err), nil)
		return
	}
	if games == nil {
		games = []library.Game{}
	}
	success(c, "completed", fmt.Sprintf("found %d installed games", len(games)), map[string]any{
		"count": len(games),
		"games": games,
	}, "done", nil)
}

type deleteGameRequest struct {
	TargetPath          string `json:"target_path" binding:"required"`
	GameID              string `json:"game_id" binding:"required"`
	DestinationFilename string `json:"destination_filename"`
}

func (s *Server) deleteGame(c *gin.Context) {
	var req deleteGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid request body",
			map[string]any{"error": err.Error()}, "fix_request_and_retry", nil)
		return
	}

	result, err := s.library.Delete(req.TargetPath, req.GameID, req.DestinationFilename)
	if err != nil {
		failure(c, statusFor(err), err.Error(),
			map[string]any{"removed_files": result.RemovedFiles}, nextActionFor(err), nil)
		return
	}
	s.logger.Info("game removed via api",
		logging.String("game_id", req.GameID),
		logging.Int("files", len(result.RemovedFiles)))
	success(c, "completed", "game removed", map[string]any{
		"removed_files":            result.RemovedFiles,
		"removed_art":              result.RemovedArt,
		"manifest_entries_removed": result.ManifestEntries,
	}, "done", nil)
}
