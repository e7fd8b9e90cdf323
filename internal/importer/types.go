package importer

import "io"

// Pipeline states, in execution order.
const (
	StateInitializing      = "initializing"
	StateValidatingTarget  = "validating_target"
	StateEnsuringStructure = "ensuring_structure"
	StateValidatingFiles   = "validating_files"
	StateCheckingSpace     = "checking_space"
	StateImporting         = "importing"
	StateCompleted         = "completed"
	StateFailed            = "failed"
)

// Source is one uploaded file: a name plus a way to read its content. The
// web layer backs it with a multipart part, the CLI with a local file.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// StagedFile captures everything decided about one upload during staging.
// Immutable once built; discarded when the staging directory is removed.
type StagedFile struct {
	OriginalName string
	GameName     string
	GameID       string
	IDSource     string
	Size         int64
	StagedPath   string
	TargetFolder string
	DestName     string
}

// ImportedFile describes one file committed to the target.
type ImportedFile struct {
	File           string `json:"file"`
	SourceFilename string `json:"source_filename"`
	GameName       string `json:"game_name"`
	GameID         string `json:"game_id"`
	IDSource       string `json:"id_source"`
	TargetFolder   string `json:"target_folder"`
	Destination    string `json:"destination"`
	Size           string `json:"size"`
}

// Step is one progress record for UI display.
type Step struct {
	State   string         `json:"state"`
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Request describes one import job.
type Request struct {
	TargetPath string
	Overwrite  bool
	Sources    []Source
}

// Result is the full outcome of a job, success or failure. Err is nil only
// in the completed state; Imported lists commits made before any failure.
type Result struct {
	State        string
	Message      string
	Details      map[string]any
	Steps        []Step
	Imported     []ImportedFile
	ManifestPath string
	Err          error
}

func (r *Result) step(state, status, message string, details map[string]any) {
	s := Step{State: state, Status: status, Message: message}
	if len(details) > 0 {
		s.Details = details
	}
	r.Steps = append(r.Steps, s)
}

func (r *Result) fail(err error, message string, details map[string]any) Result {
	r.State = StateFailed
	r.Message = message
	r.Err = err
	if details != nil {
		r.Details = details
	}
	return *r
}
