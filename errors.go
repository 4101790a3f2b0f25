package maskmix

import (
	"errors"
	"fmt"
)

var (
	ErrMissingMask        = errors.New("maskmix: mask file missing or unreadable")
	ErrDimensionMismatch  = errors.New("maskmix: mask dimensions differ")
	ErrDecode             = errors.New("maskmix: mask is not a valid image")
	ErrInvalidScale       = errors.New("maskmix: scale factor must be a positive finite number")
	ErrEmptyScaleSet      = errors.New("maskmix: no scale factors requested")
	ErrOutputWrite        = errors.New("maskmix: cannot write output")
	ErrUnknownFilter      = errors.New("maskmix: unknown resample filter")
	ErrUnknownAlphaPolicy = errors.New("maskmix: unknown alpha policy")
	ErrInvalidWeight      = errors.New("maskmix: weight must be in [0, 1]")
)

// Stage names a step of the export pipeline.
type Stage string

const (
	StageValidate Stage = "validate"
	StageLoad     Stage = "load"
	StageBlend    Stage = "blend"
	StageResample Stage = "resample"
	StageEncode   Stage = "encode"
	StageWrite    Stage = "write"
)

// StageError reports which pipeline stage failed. It unwraps to the
// underlying error, so errors.Is works against the Err... sentinels.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
