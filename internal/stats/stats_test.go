// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassLoadOutcomeTalliesSuccessAndFailure(t *testing.T) {
	var s Session

	ok := s.NewClassLoadOutcome()
	ok.ReportSuccess()

	fail := s.NewClassLoadOutcome()
	fail.ReportFailure()

	snap := s.Snapshot()
	assert.EqualValues(t, 2, snap.ClassesLoaded)
	assert.EqualValues(t, 1, snap.ParsedOK)
	assert.EqualValues(t, 1, snap.ParseFailed)
}

func TestMethodOutcomeDoesNotTouchClassesLoaded(t *testing.T) {
	var s Session

	out := s.NewMethodOutcome()
	out.ReportSuccess()

	snap := s.Snapshot()
	assert.EqualValues(t, 0, snap.ClassesLoaded)
	assert.EqualValues(t, 1, snap.Instrumented)
	assert.EqualValues(t, 0, snap.Demoted)
}

func TestClassLoadOutcomeIsOneShot(t *testing.T) {
	var s Session

	out := s.NewClassLoadOutcome()
	out.ReportSuccess()
	out.ReportFailure() // sealed; must not also bump ParseFailed

	snap := s.Snapshot()
	assert.EqualValues(t, 1, snap.ParsedOK)
	assert.EqualValues(t, 0, snap.ParseFailed)
}

func TestAddCPEntriesIgnoresNonPositive(t *testing.T) {
	var s Session
	s.AddCPEntries(0)
	s.AddCPEntries(-5)
	s.AddCPEntries(3)

	snap := s.Snapshot()
	assert.EqualValues(t, 3, snap.CPEntriesAdded)
}
