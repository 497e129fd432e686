package version

import "fmt"

type Stage string

const (
	StageLoad       Stage = "load"
	StageCandidates Stage = "candidates"
	StageText       Stage = "text"
	StageDiff       Stage = "diff"
	StageArtifact   Stage = "artifact"
	StageSupersede  Stage = "supersede"
	StageReview     Stage = "review"
	StagePanic      Stage = "panic"
)

// Diagnostic is an internal resolution failure. Importers log it and carry on.
type Diagnostic struct {
	DocumentID int64
	Stage      Stage
	Err        error
}

func diagnose(docID int64, stage Stage, err error) *Diagnostic {
	return &Diagnostic{DocumentID: docID, Stage: stage, Err: err}
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("version resolution for document %d failed at %s: %v", d.DocumentID, d.Stage, d.Err)
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}
