package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"opldock/internal/faults"
	"opldock/internal/gameid"
	"opldock/internal/logging"
	"opldock/internal/manifest"
	"opldock/internal/target"
)

// gameFolders are the target folders scanned for installed games.
var gameFolders = []string{"CD", "DVD"}

// Game is one installed game found on the target.
type Game struct {
	GameID      string `json:"game_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Folder      string `json:"folder"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	SizeBytes   int64  `json:"size_bytes"`
	Size        string `json:"size"`
	IDSource    string `json:"id_source"`
	InManifest  bool   `json:"in_manifest"`
}

// DeleteResult reports what a removal touched.
type DeleteResult struct {
	RemovedFiles    []string `json:"removed_files"`
	RemovedArt      []string `json:"removed_art"`
	ManifestEntries int      `json:"manifest_entries_removed"`
}

// Service scans and prunes the game library on a target.
type Service struct {
	store  *manifest.Store
	logger *slog.Logger
	titler cases.Caser
}

// NewService builds a library service over the shared manifest store.
func NewService(store *manifest.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logging.NewComponentLogger(logger, "library"),
		titler: cases.Title(language.English),
	}
}

// Scan lists every .iso under CD and DVD, joined with the manifest where an
// entry exists. Games missing from the manifest still appear, with identity
// recovered from the filename where possible.
func (s *Service) Scan(targetPath string) ([]Game, error) {
	dir, err := target.Resolve(targetPath)
	if err != nil {
		return nil, err
	}
	if err := target.ValidateAccess(dir); err != nil {
		return nil, err
	}

	doc := s.store.Load(dir)
	byDestination := make(map[string]manifest.Entry, len(doc.Entries))
	for _, entry := range doc.Entries {
		byDestination[entry.DestinationKey] = entry
	}

	var games []Game
	for _, folder := range gameFolders {
		folderPath := filepath.Join(dir, folder)
		entries, err := os.ReadDir(folderPath)
		if err != nil {
			continue
		}
		for _, dirent := range entries {
			if dirent.IsDir() || !strings.EqualFold(filepath.Ext(dirent.Name()), ".iso") {
				continue
			}
			info, err := dirent.Info()
			if err != nil {
				continue
			}
			games = append(games, s.describe(folder, folderPath, dirent.Name(), info.Size(), byDestination))
		}
	}

	sort.Slice(games, func(i, j int) bool {
		if games[i].DisplayName != games[j].DisplayName {
			return games[i].DisplayName < games[j].DisplayName
		}
		return games[i].Filename < games[j].Filename
	})
	return games, nil
}

func (s *Service) describe(folder, folderPath, filename string, size int64, byDestination map[string]manifest.Entry) Game {
	game := Game{
		Folder:    folder,
		Filename:  filename,
		Path:      filepath.Join(folderPath, filename),
		SizeBytes: size,
		Size:      target.HumanBytes(size),
	}

	if entry, ok := byDestination[manifest.StemKey(filename)]; ok {
		game.GameID = entry.GameID
		game.Name = entry.GameName
		game.IDSource = entry.IDSource
		game.InManifest = true
	} else {
		if id, ok := gameid.FromFilename(filename); ok {
			game.GameID = id
			game.IDSource = gameid.SourceFilename
		}
		if name, err := gameid.DeriveName("", filename); err == nil {
			game.Name = name
		} else {
			game.Name = strings.TrimSuffix(filename, filepath.Ext(filename))
		}
	}
	game.DisplayName = s.titler.String(strings.ToLower(game.Name))
	return game
}

// Delete removes a game's image files, its art, and its manifest entries.
// With destinationFilename set only that file is removed; otherwise every
// CD/DVD file carrying the game ID goes.
func (s *Service) Delete(targetPath, rawGameID, destinationFilename string) (DeleteResult, error) {
	dir, err := target.Resolve(targetPath)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := target.ValidateAccess(dir); err != nil {
		return DeleteResult{}, err
	}
	id, err := gameid.Normalize(rawGameID)
	if err != nil {
		return DeleteResult{}, faults.Wrap(faults.ErrValidation, "deleting", "check id", err.Error(), nil)
	}

	var result DeleteResult
	for _, folder := range gameFolders {
		folderPath := filepath.Join(dir, folder)
		entries, err := os.ReadDir(folderPath)
		if err != nil {
			continue
		}
		for _, dirent := range entries {
			if dirent.IsDir() {
				continue
			}
			if !s.belongsTo(dirent.Name(), id, destinationFilename) {
				continue
			}
			path := filepath.Join(folderPath, dirent.Name())
			if err := os.Remove(path); err != nil {
				return result, faults.Wrap(faults.ErrAccess, "deleting", "remove file",
					fmt.Sprintf("cannot remove %s", path), err)
			}
			result.RemovedFiles = append(result.RemovedFiles, path)
		}
	}
	if len(result.RemovedFiles) == 0 {
		return result, faults.Wrap(faults.ErrNotFound, "deleting", "locate game",
			fmt.Sprintf("no installed files found for %s", id), nil)
	}

	artMatches, _ := filepath.Glob(filepath.Join(dir, "ART", id+"_*"))
	for _, path := range artMatches {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to remove art file",
				logging.String("path", path),
				logging.Error(err))
			continue
		}
		result.RemovedArt = append(result.RemovedArt, path)
	}

	removed, err := s.store.Remove(dir, id, destinationFilename)
	if err != nil {
		return result, err
	}
	result.ManifestEntries = removed

	s.logger.Info("game deleted",
		logging.String("game_id", id),
		logging.Int("files", len(result.RemovedFiles)),
		logging.Int("art", len(result.RemovedArt)),
		logging.Int("manifest_entries", removed))
	return result, nil
}

// belongsTo reports whether filename is one of the game's image files.
func (s *Service) belongsTo(filename, id, destinationFilename string) bool {
	if destinationFilename != "" {
		return strings.EqualFold(filename, destinationFilename)
	}
	if strings.HasPrefix(strings.ToUpper(filename), id+"_") {
		return true
	}
	embedded, ok := gameid.FromFilename(filename)
	return ok && embedded == id
}
