// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package data

import (
	"strings"

	"github.com/pkg/errors"
)

// Stage of a dataset: which subset of the data it holds.
//
//go:generate go tool enumer -type=Stage -trimprefix=Stage -transform=lower -output=gen_stage_enumer.go
type Stage int

const (
	StageTrain Stage = iota
	StageVal
	StageTest
	StagePredict
)

// Stages lists the stages that are built from the task splits, in order.
var Stages = []Stage{StageTrain, StageVal, StageTest}

// ParseStage converts a name ("train", "val", "test" or "predict", case-insensitive) to a Stage.
// "valid" and "validation" are accepted for StageVal.
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "valid", "validation":
		return StageVal, nil
	}
	s, err := StageString(name)
	if err != nil {
		return 0, Configurationf("unknown stage %q, valid values are %q", name, StageStrings())
	}
	return s, nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, accepting the aliases of ParseStage.
func (s *Stage) UnmarshalText(text []byte) error {
	v, err := ParseStage(string(text))
	if err != nil {
		return errors.WithMessagef(err, "parsing stage")
	}
	*s = v
	return nil
}
