// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Command planneragent is a demonstration binary wiring the class-load
// instrumentation planner (spec.md) end to end: it reads an attach-time
// root-classes-loaded command and a stream of class-load events from JSON
// files, fetches class bytes from a directory via the reference Fetcher,
// drives a session.Session through Initial/OnClassLoad, and prints each
// resulting instrumentation batch. It stands in for the wire transport,
// GUI, and target-JVM redefinition agent that spec.md §1 treats as
// external collaborators.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/elastic/jfluid-agent/internal/classcache"
	"github.com/elastic/jfluid-agent/internal/classrecord"
	"github.com/elastic/jfluid-agent/internal/editor"
	"github.com/elastic/jfluid-agent/internal/logging"
	"github.com/elastic/jfluid-agent/internal/plannerconfig"
	"github.com/elastic/jfluid-agent/internal/resultpack"
	"github.com/elastic/jfluid-agent/internal/session"
	"github.com/elastic/jfluid-agent/vc"
	logrus "github.com/sirupsen/logrus"

	//nolint:gosec
	_ "net/http/pprof"
)

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// Go's 'flag' package calls os.Exit(2) on parse errors when ExitOnError
	// is set.
	exitParseError exitCode = 2
)

func main() {
	os.Exit(int(mainWithExitCode()))
}

func splitGlobs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mainWithExitCode() exitCode {
	args, err := parseArgs()
	if err != nil {
		return exitParseError
	}

	if args.Version {
		fmt.Printf("planneragent %s (revision %s, build timestamp %s)\n",
			vc.Version(), vc.Revision(), vc.BuildTimestamp())
		return exitSuccess
	}

	logging.Configure(args.Verbose)
	log := logging.Log
	if args.Verbose {
		args.dump(func(format string, a ...any) { log.Debugf(format, a...) })
	}

	if args.PprofAddr != "" {
		go func() {
			//nolint:gosec
			if err := http.ListenAndServe(args.PprofAddr, nil); err != nil {
				log.Errorf("serving pprof on %s failed: %v", args.PprofAddr, err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := plannerconfig.Default()
	cfg.CanInstrumentConstructor = !args.NoConstructorInstrumentation
	cfg.DontInstrumentEmptyMethods = !args.InstrumentEmptyMethods
	cfg.DontScanGetterSetterMethods = !args.InstrumentGetterSetters
	cfg.InstrumentSpawnedThreads = args.InstrumentSpawnedThreads
	cfg.FilterInclude = splitGlobs(args.FilterInclude)
	cfg.FilterExclude = splitGlobs(args.FilterExclude)

	var fetcher classcache.Fetcher = &fsFetcher{root: args.Classpath}
	sess, err := session.New(fetcher, uint32(args.CacheSize), &editor.ProbeInjector{}, cfg)
	if err != nil {
		log.Errorf("failed to create session: %v", err)
		return exitFailure
	}
	log.Infof("planner session %s attached", sess.ID)

	spec, err := loadAttachSpec(args.AttachSpec)
	if err != nil {
		log.Errorf("%v", err)
		return exitFailure
	}

	batch, err := sess.Initial(ctx, spec.toInitialSnapshot(), spec.toRootSet())
	if err != nil {
		log.Errorf("initial attach reported errors: %v", err)
	}
	printBatch(log, batch)

	events, err := loadEvents(args.Events)
	if err != nil {
		log.Errorf("%v", err)
		return exitFailure
	}
	for _, ev := range events {
		select {
		case <-ctx.Done():
			log.Infof("interrupted, stopping replay early")
			return exitSuccess
		default:
		}
		batch, err = sess.OnClassLoad(ctx, ev.Name, classrecord.LoaderID(ev.Loader))
		if err != nil {
			log.Errorf("class load %s: %v", ev.Name, err)
			continue
		}
		printBatch(log, batch)
	}

	snap := sess.Stats()
	log.Infof("session %s done: %d classes loaded, %d parsed, %d parse failures, "+
		"%d methods instrumented, %d demoted, %d cp entries added",
		sess.ID, snap.ClassesLoaded, snap.ParsedOK, snap.ParseFailed,
		snap.Instrumented, snap.Demoted, snap.CPEntriesAdded)

	return exitSuccess
}

// printBatch writes one resultpack.Batch to stdout as a JSON line, the
// demo binary's stand-in for handing the batch to the bytecode editor /
// downstream redefinition agent (spec.md §1, §6).
func printBatch(logger *logrus.Logger, batch resultpack.Batch) {
	if len(batch.Methods) == 0 {
		return
	}
	data, err := json.Marshal(batch)
	if err != nil {
		logger.Errorf("failed to marshal batch %s: %v", batch.ID, err)
		return
	}
	fmt.Println(string(data))
}
