package importer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"opldock/internal/faults"
	"opldock/internal/fileutil"
	"opldock/internal/gameid"
	"opldock/internal/logging"
	"opldock/internal/manifest"
	"opldock/internal/target"
)

// Pipeline executes import jobs. One Pipeline serves all requests; each Run
// gets its own staging directory. Free-space probing is injectable so tests
// can simulate shrinking media.
type Pipeline struct {
	stagingRoot string
	store       *manifest.Store
	resolver    *gameid.Resolver
	logger      *slog.Logger
	freeBytes   func(dir string) (uint64, error)
}

// New constructs a pipeline over the given collaborators.
func New(stagingRoot string, store *manifest.Store, resolver *gameid.Resolver, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		stagingRoot: stagingRoot,
		store:       store,
		resolver:    resolver,
		logger:      logging.NewComponentLogger(logger, "importer"),
		freeBytes:   target.FreeBytes,
	}
}

// SetFreeBytesForTests swaps the free-space probe and returns a restore
// function.
func (p *Pipeline) SetFreeBytesForTests(probe func(string) (uint64, error)) func() {
	previous := p.freeBytes
	p.freeBytes = probe
	return func() { p.freeBytes = previous }
}

// Run drives one job through the state machine. It never panics across the
// boundary and always removes the staging directory before returning. There
// is deliberately no cancellation once the copy loop starts: an interrupted
// copy onto FAT media leaves a half-written file the user has to find and
// delete by hand.
func (p *Pipeline) Run(req Request) Result {
	res := Result{State: StateInitializing, Details: map[string]any{}}
	res.step(StateInitializing, "info", "starting import job", nil)

	dir, err := target.Resolve(req.TargetPath)
	if err != nil {
		res.step(StateInitializing, "error", err.Error(), nil)
		return res.fail(err, "invalid target path", nil)
	}

	res.State = StateValidatingTarget
	res.step(StateValidatingTarget, "info", "checking target path", map[string]any{"target": dir})
	if err := target.ValidateAccess(dir); err != nil {
		res.step(StateValidatingTarget, "error", err.Error(), nil)
		return res.fail(err, "target validation failed", map[string]any{"target": dir})
	}

	res.State = StateEnsuringStructure
	res.step(StateEnsuringStructure, "info", "ensuring required folders", nil)
	missing, created, err := target.EnsureFolders(dir)
	if err != nil {
		res.step(StateEnsuringStructure, "error", err.Error(), nil)
		return res.fail(err, "invalid target structure", nil)
	}
	res.step(StateEnsuringStructure, "success", "required folders are ready",
		map[string]any{"missing_before": missing, "created": created})

	if len(req.Sources) == 0 {
		err := faults.Wrap(faults.ErrValidation, StateValidatingFiles, "inspect batch", "no files uploaded", nil)
		res.step(StateValidatingFiles, "error", "no files uploaded", nil)
		return res.fail(err, "no files uploaded", nil)
	}

	res.State = StateValidatingFiles
	res.step(StateValidatingFiles, "info", "validating and staging uploads", nil)

	stagingDir := filepath.Join(p.stagingRoot, "import-"+uuid.NewString())
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		wrapped := faults.Wrap(faults.ErrAccess, StateValidatingFiles, "create staging dir", "cannot create staging directory", err)
		res.step(StateValidatingFiles, "error", wrapped.Error(), nil)
		return res.fail(wrapped, "cannot create staging directory", nil)
	}
	defer func() {
		if err := os.RemoveAll(stagingDir); err != nil {
			p.logger.Warn("failed to remove staging directory",
				logging.String("path", stagingDir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "disk space not reclaimed"))
		}
	}()

	staged, err := p.stage(dir, stagingDir, req.Sources, &res)
	if err != nil {
		return res.fail(err, userMessage(err), res.Details)
	}

	var totalBytes int64
	for _, file := range staged {
		totalBytes += file.Size
	}
	if totalBytes == 0 {
		err := faults.Wrap(faults.ErrValidation, StateValidatingFiles, "inspect batch", "uploaded files are empty", nil)
		res.step(StateValidatingFiles, "error", "uploaded files are empty", nil)
		return res.fail(err, "uploaded files are empty", nil)
	}
	res.step(StateValidatingFiles, "success", "files staged successfully", map[string]any{
		"file_count":      len(staged),
		"total_iso_bytes": totalBytes,
		"total_iso_human": target.HumanBytes(totalBytes),
	})

	res.State = StateCheckingSpace
	res.step(StateCheckingSpace, "info", "checking available disk space", nil)
	if err := p.checkSpace(dir, totalBytes, &res); err != nil {
		return res.fail(err, "insufficient disk space", res.Details)
	}

	res.State = StateImporting
	res.step(StateImporting, "info", "copying files to target", nil)
	if err := p.commit(dir, staged, req.Overwrite, &res); err != nil {
		res.Details["imported"] = res.Imported
		res.Details["imported_count"] = len(res.Imported)
		return res.fail(err, userMessage(err), res.Details)
	}

	res.State = StateCompleted
	res.ManifestPath = manifest.Path(dir)
	res.Message = "all files imported successfully"
	res.Details = map[string]any{
		"target":         dir,
		"imported_count": len(res.Imported),
		"imported":       res.Imported,
		"manifest_path":  res.ManifestPath,
	}
	res.step(StateCompleted, "success", "import completed", nil)
	p.logger.Info("import completed",
		logging.Int("files", len(res.Imported)),
		logging.String("target", dir),
		logging.Int64("bytes", totalBytes))
	return res
}

// stage validates every source name, copies the content into the staging
// directory, and resolves each file's game identity and destination. Any
// validation failure aborts the whole batch.
func (p *Pipeline) stage(targetDir, stagingDir string, sources []Source, res *Result) ([]StagedFile, error) {
	staged := make([]StagedFile, 0, len(sources))
	for _, src := range sources {
		originalName := filepath.Base(strings.TrimSpace(src.Name))
		if originalName == "" || originalName == "." || originalName == string(filepath.Separator) {
			res.step(StateValidatingFiles, "error", "found file with empty filename", nil)
			return nil, faults.Wrap(faults.ErrValidation, StateValidatingFiles, "inspect name", "invalid file name", nil)
		}
		if !strings.EqualFold(filepath.Ext(originalName), ".iso") {
			res.step(StateValidatingFiles, "error", "non-iso file detected", map[string]any{"file": originalName})
			return nil, faults.Wrap(faults.ErrValidation, StateValidatingFiles, "inspect name",
				fmt.Sprintf("only .iso files are allowed, got %q", originalName), nil)
		}

		stagedPath := allocateStagedPath(stagingDir, originalName)
		size, err := p.copyToStaging(src, stagedPath)
		if err != nil {
			res.step(StateValidatingFiles, "error", err.Error(), map[string]any{"file": originalName})
			return nil, faults.Wrap(faults.ErrAccess, StateValidatingFiles, "stage upload",
				fmt.Sprintf("cannot stage %q", originalName), err)
		}

		gameName, err := gameid.DeriveName("", originalName)
		if err != nil {
			stem := strings.TrimSuffix(originalName, filepath.Ext(originalName))
			gameName = stem
		}

		resolution := p.resolver.Resolve(gameid.Request{
			TargetDir:      targetDir,
			GameName:       gameName,
			SourceFilename: originalName,
			StagedPath:     stagedPath,
		})

		folder := "DVD"
		if size < target.CDThresholdBytes {
			folder = "CD"
		}

		staged = append(staged, StagedFile{
			OriginalName: originalName,
			GameName:     gameName,
			GameID:       resolution.ID,
			IDSource:     resolution.Source,
			Size:         size,
			StagedPath:   stagedPath,
			TargetFolder: folder,
			DestName:     destinationName(resolution.ID, originalName),
		})
		p.logger.Debug("staged upload",
			logging.String("file", originalName),
			logging.String("game_id", resolution.ID),
			logging.String("id_source", resolution.Source),
			logging.Int64("bytes", size))
	}
	return staged, nil
}

func (p *Pipeline) copyToStaging(src Source, stagedPath string) (int64, error) {
	reader, err := src.Open()
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	out, err := os.OpenFile(stagedPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	size, err := io.Copy(out, reader)
	if err != nil {
		return 0, err
	}
	return size, out.Close()
}

func (p *Pipeline) checkSpace(dir string, totalBytes int64, res *Result) error {
	free, err := p.freeBytes(dir)
	if err != nil {
		res.step(StateCheckingSpace, "error", err.Error(), nil)
		return faults.Wrap(faults.ErrAccess, StateCheckingSpace, "statfs", "cannot determine free space", err)
	}
	required := target.RequiredBytes(totalBytes)
	buffer := target.SafetyBuffer(totalBytes)
	if free < uint64(required) {
		deficit := required - int64(free)
		res.step(StateCheckingSpace, "error", "not enough free space", map[string]any{
			"required_bytes": required,
			"free_bytes":     free,
			"deficit_bytes":  deficit,
		})
		res.Details = map[string]any{
			"target":   dir,
			"required": target.HumanBytes(required),
			"free":     target.HumanBytes(int64(free)),
			"deficit":  target.HumanBytes(deficit),
			"buffer":   target.HumanBytes(buffer),
		}
		return faults.Wrap(faults.ErrCapacity, StateCheckingSpace, "compare",
			fmt.Sprintf("need %s free, have %s (short %s)",
				target.HumanBytes(required), target.HumanBytes(int64(free)), target.HumanBytes(deficit)), nil)
	}
	res.step(StateCheckingSpace, "success", "disk space is sufficient", map[string]any{
		"required": target.HumanBytes(required),
		"free":     target.HumanBytes(int64(free)),
		"buffer":   target.HumanBytes(buffer),
	})
	return nil
}

// commit copies staged files in original order. Before every copy the target
// root is re-checked and the space requirement is recomputed against the
// files still pending, because free space can shrink underneath a running
// batch. Files copied before a failure stay in place.
func (p *Pipeline) commit(dir string, staged []StagedFile, overwrite bool, res *Result) error {
	for idx, file := range staged {
		if _, err := os.Stat(dir); err != nil {
			res.step(StateImporting, "error", "target path disappeared during import", nil)
			return faults.Wrap(faults.ErrDeviceGone, StateImporting, "verify target",
				"target path disappeared during import; reconnect the device and retry", err)
		}

		destination := filepath.Join(dir, file.TargetFolder, file.DestName)
		if _, err := os.Stat(destination); err == nil && !overwrite {
			res.step(StateImporting, "error", "destination file already exists",
				map[string]any{"file": file.DestName, "destination": destination})
			return faults.Wrap(faults.ErrCollision, StateImporting, "check destination",
				fmt.Sprintf("destination already exists: %s", destination), nil)
		}

		var remaining int64
		for _, pending := range staged[idx:] {
			remaining += pending.Size
		}
		free, err := p.freeBytes(dir)
		if err != nil {
			res.step(StateImporting, "error", err.Error(), nil)
			return faults.Wrap(faults.ErrDeviceGone, StateImporting, "statfs",
				"cannot determine free space on target; reconnect the device and retry", err)
		}
		if required := target.RequiredBytes(remaining); free < uint64(required) {
			res.step(StateImporting, "error", "disk space dropped during import", map[string]any{
				"file":     file.DestName,
				"required": target.HumanBytes(required),
				"free":     target.HumanBytes(int64(free)),
			})
			return faults.Wrap(faults.ErrCapacity, StateImporting, "recheck space",
				fmt.Sprintf("disk space dropped during import at %s", file.DestName), nil)
		}

		if err := fileutil.CopyPreserve(file.StagedPath, destination); err != nil {
			res.step(StateImporting, "error", err.Error(), map[string]any{"file": file.DestName})
			return faults.Wrap(faults.ErrAccess, StateImporting, "copy",
				fmt.Sprintf("failed to copy %s", file.DestName), err)
		}

		if err := p.store.Upsert(dir, manifest.UpsertFields{
			SourceFilename:      file.OriginalName,
			GameName:            file.GameName,
			GameID:              file.GameID,
			IDSource:            file.IDSource,
			TargetFolder:        file.TargetFolder,
			DestinationFilename: file.DestName,
		}); err != nil {
			res.step(StateImporting, "error", err.Error(), map[string]any{"file": file.DestName})
			return faults.Wrap(faults.ErrAccess, StateImporting, "journal",
				fmt.Sprintf("copied %s but failed to update manifest", file.DestName), err)
		}

		res.Imported = append(res.Imported, ImportedFile{
			File:           file.DestName,
			SourceFilename: file.OriginalName,
			GameName:       file.GameName,
			GameID:         file.GameID,
			IDSource:       file.IDSource,
			TargetFolder:   file.TargetFolder,
			Destination:    destination,
			Size:           target.HumanBytes(file.Size),
		})
		res.step(StateImporting, "success", "file copied",
			map[string]any{"file": file.DestName, "destination": destination})
	}
	return nil
}

// allocateStagedPath avoids collisions within one batch by suffixing an
// incrementing counter before the extension.
func allocateStagedPath(stagingDir, originalName string) string {
	candidate := filepath.Join(stagingDir, originalName)
	if _, err := os.Stat(candidate); err != nil {
		return candidate
	}
	ext := filepath.Ext(originalName)
	stem := strings.TrimSuffix(originalName, ext)
	for counter := 1; ; counter++ {
		candidate = filepath.Join(stagingDir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

// destinationName guarantees the destination filename starts with the game
// ID followed by an underscore, without doubling an existing prefix.
func destinationName(gameID, originalName string) string {
	if strings.HasPrefix(strings.ToUpper(originalName), gameID+"_") {
		return originalName
	}
	return gameID + "_" + originalName
}

// userMessage maps an error to the short message shown in the response
// envelope, keeping the wrapped detail in the error itself.
func userMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx > 0 {
		return msg[idx+2:]
	}
	return msg
}
