// Package pipeline provides the conversion pipeline for isometric.
//
// This package implements the identify → plan → copy → transform → verify
// sequence for a single image, and the orchestration that applies it to a
// file or to every entry of a directory. The CLI is a thin layer over it.
//
// # Architecture
//
// The pipeline consists of two layers:
//
//  1. Converter: runs one [Task] and produces one [Outcome]
//  2. Runner: resolves the input as file or directory, fans tasks out to a
//     bounded worker pool, and collects every outcome into a [Result]
//
// A task that fails in a directory run is reported in its outcome and never
// stops its siblings. A single-file run has nothing to isolate, so its error
// is returned to the caller.
//
// # Usage
//
//	backend, _ := raster.New(raster.BackendGM, raster.Config{Logger: logger})
//	runner := pipeline.NewRunner(pipeline.NewConverter(backend, logger), 0, logger)
//	result, err := runner.Run(ctx, "assets/", "assets-iso/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, o := range result.Outcomes {
//	    fmt.Println(o.Task.Output, o.Status)
//	}
package pipeline

import (
	"fmt"
	"time"

	"github.com/matzehuels/isometric/pkg/errors"
	"github.com/matzehuels/isometric/pkg/geometry"
	"github.com/matzehuels/isometric/pkg/raster"
)

// =============================================================================
// Tasks & Outcomes
// =============================================================================

// Task identifies one unit of work.
type Task struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Status classifies an Outcome.
type Status string

const (
	// StatusSuccess means the output is within tolerance of the plan.
	StatusSuccess Status = "success"
	// StatusOutsideMargin means the output was written but its dimensions
	// miss the plan by more than the tolerance. It is a warning, not an error.
	StatusOutsideMargin Status = "outside_margin"
	// StatusFailed means the task stopped before validation.
	StatusFailed Status = "failed"
)

// Outcome is the result of one Task. It is never modified after Convert returns.
type Outcome struct {
	Task     Task              `json:"task"`
	Status   Status            `json:"status"`
	Plan     geometry.Plan     `json:"plan"`
	Final    raster.Dimensions `json:"final"`
	Err      error             `json:"-"`
	Duration time.Duration     `json:"duration"`
}

// Success reports whether the output passed validation.
func (o Outcome) Success() bool {
	return o.Status == StatusSuccess
}

// Reason explains a non-successful outcome. It is empty on success.
func (o Outcome) Reason() string {
	switch o.Status {
	case StatusOutsideMargin:
		tw, th := o.Plan.Tolerance(geometry.DefaultMarginPercent)
		return fmt.Sprintf("final dimensions %s are not strictly within ±%dpx x ±%dpx (%g%%) of target %s",
			o.Final, tw, th, geometry.DefaultMarginPercent,
			raster.Dimensions{Width: o.Plan.TargetWidth, Height: o.Plan.TargetHeight})
	case StatusFailed:
		if o.Err != nil {
			return errors.UserMessage(o.Err)
		}
		return "failed"
	}
	return ""
}

// =============================================================================
// Results
// =============================================================================

// Mode records how the input path was interpreted.
type Mode string

const (
	ModeFile      Mode = "file"
	ModeDirectory Mode = "directory"
)

// Result collects the outcomes of one Run.
type Result struct {
	RunID    string    `json:"run_id"`
	Mode     Mode      `json:"mode"`
	Outcomes []Outcome `json:"outcomes"`
}

// Counts tallies outcomes by status.
func (r *Result) Counts() (success, outsideMargin, failed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusSuccess:
			success++
		case StatusOutsideMargin:
			outsideMargin++
		case StatusFailed:
			failed++
		}
	}
	return success, outsideMargin, failed
}
