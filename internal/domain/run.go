package domain

// RunStage enumerates pipeline milestones.
type RunStage string

const (
	StageFetching    RunStage = "fetching"
	StageFiltering   RunStage = "filtering"
	StageSummarizing RunStage = "summarizing"
	StageStoring     RunStage = "storing"
	StageDone        RunStage = "done"
	StageAborted     RunStage = "aborted"
)

// Terminal reports whether no further transition is possible.
func (s RunStage) Terminal() bool {
	return s == StageDone || s == StageAborted
}

// RunReport describes the outcome of one pipeline run.
type RunReport struct {
	RunID      string
	Keyword    string
	Stage      RunStage
	Fetched    int
	Retained   int
	Summarized int
	Skipped    int
	Stored     int
	Err        error
}

// GenerationParams is the decoding configuration handed to the model backend.
type GenerationParams struct {
	MaxInputTokens int
	MaxLength      int
	MinLength      int
	NumBeams       int
	LengthPenalty  float64
	EarlyStopping  bool
	DoSample       bool
}
