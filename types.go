package main

import (
	"time"

	"tabvar-studio/tools/tkztab"
)

// StudioConfig holds configuration for the studio.
type StudioConfig struct {
	OutputDir      string
	VerboseLogging bool
}

// TableRequest is the input for one generation run.
type TableRequest struct {
	TablePath string
	Name      string // output base name; derived from the file name when empty
	Mode      tkztab.Mode
	Normalize bool // pad/truncate slices before validating
	Preview   bool
	CreatedAt time.Time
}

// TableOutput is the result of one generation run.
type TableOutput struct {
	Name    string
	Dir     string
	TexPath string
	PNGPath string
	Source  string
	Width   int
	Height  int
}
