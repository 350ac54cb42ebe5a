// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging sets up the module's structured logger. It mirrors the
// teacher's direct use of a package-level logrus logger (log.SetLevel,
// log.Infof) rather than threading a logger value through every call.
package logging

import (
	log "github.com/sirupsen/logrus"
)

// Configure sets the global logrus level and, for verbose mode, enables
// caller reporting so parse-fault diagnostics point at the originating
// planner call.
func Configure(verbose bool) {
	if verbose {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
		return
	}
	log.SetLevel(log.InfoLevel)
}

// Log is the package-level logger every component imports, matching the
// teacher's `log "github.com/sirupsen/logrus"` idiom.
var Log = log.StandardLogger()
