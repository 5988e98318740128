package models

import "time"

// StageName names one pipeline stage.
type StageName string

const (
	StageSimulate   StageName = "simulate"
	StageDownload   StageName = "download"
	StageDecompress StageName = "decompress"
	StageConvert    StageName = "convert"
	StageBenchmark  StageName = "benchmark"
	StageCollect    StageName = "collect"
	StagePlot       StageName = "plot"
	StageCompile    StageName = "compile"
)

// OutcomeKind is the final state of one (dataset, stage) pair.
type OutcomeKind string

const (
	OutcomePreconditionMissing OutcomeKind = "skipped-precondition-missing"
	OutcomeAlreadyExists       OutcomeKind = "skipped-already-exists"
	OutcomeSuccess             OutcomeKind = "success"
	OutcomeFailure             OutcomeKind = "failure"
)

// Severity is how an outcome counts in the batch summary.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityError
)

// Outcome is produced exactly once per dataset for one stage invocation.
type Outcome struct {
	Dataset  string        `json:"dataset"`
	Stage    StageName     `json:"stage"`
	Kind     OutcomeKind   `json:"kind"`
	Type     ErrorType     `json:"type,omitempty"`
	Reason   string        `json:"reason"`
	Failures []StepFailure `json:"failures,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Severity classifies the outcome for the batch summary.
func (o Outcome) Severity() Severity {
	switch o.Kind {
	case OutcomeSuccess:
		return SeverityOK
	case OutcomeFailure:
		return SeverityError
	default:
		return SeverityWarning
	}
}

// StepFailure carries the diagnostics of one failed external operation.
type StepFailure struct {
	Step        string `json:"step"`
	CommandLine string `json:"command_line"`
	ExitCode    int    `json:"exit_code"`
	Stdout      string `json:"stdout,omitempty"`
	Stderr      string `json:"stderr,omitempty"`
	Message     string `json:"message,omitempty"`
}

// BatchSummary holds the counters of one stage invocation.
type BatchSummary struct {
	Stage    StageName `json:"stage"`
	Total    int       `json:"total"`
	OK       int       `json:"ok"`
	Warnings int       `json:"warnings"`
	Errors   int       `json:"errors"`
	Failures []Outcome `json:"failures,omitempty"`
}

// Failed reports whether the invocation should exit non-zero.
func (s BatchSummary) Failed() bool {
	return s.Errors > 0
}
