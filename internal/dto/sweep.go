package dto

// SweepResult summarizes one run of a periodic sweep. Processed counts cases
// actually mutated (or that would be mutated in a dry run), Skipped counts
// candidates left untouched, Failed counts candidates whose processing errored.
type SweepResult struct {
	Processed int  `json:"processed"`
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
	DryRun    bool `json:"dry_run"`
}
