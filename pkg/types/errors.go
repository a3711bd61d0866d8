// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

var (
	// ErrMalformedInput reports a match table that cannot be split into
	// per-file blocks or that lacks a required column.
	ErrMalformedInput = errors.New("malformed input")

	// ErrExternalService reports a failure of the R matching step.
	ErrExternalService = errors.New("external matcher failed")

	// ErrIncompatibleFile reports an input file that is not a spectral CSV.
	ErrIncompatibleFile = errors.New("incompatible file")

	// ErrUnreachableIndex reports a first-plastic index outside the block.
	ErrUnreachableIndex = errors.New("classification index out of range")
)
