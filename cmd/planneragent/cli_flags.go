// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"os"

	"github.com/peterbourgon/ff/v3"
)

// Help strings for command line arguments.
var (
	classpathHelp = "Directory to fetch \"<internal-name>.class\" files from " +
		"(the on-disk class-file loader/cache this module treats as an external collaborator)."
	attachHelp = "Path to a JSON attach-time root-classes-loaded command " +
		"(declared roots plus already-loaded classes). Omit for an empty attach."
	eventsHelp = "Path to a JSON array of subsequent class-load events to replay."
	filterIncludeHelp = "Comma-separated glob patterns an instrumentable class must match " +
		"at least one of (empty means everything not excluded passes)."
	filterExcludeHelp = "Comma-separated glob patterns that reject a class from instrumentation."
	cacheSizeHelp = "Number of class-file byte buffers to keep in the LRU fetch cache."
	noConstructorHelp = "Never instrument <init> methods on class files newer than major version 50."
	noEmptySkipHelp = "Instrument trivial single-return method bodies instead of skipping them."
	noGetterSetterSkipHelp = "Instrument getter/setter-shaped method bodies instead of skipping them."
	spawnedThreadsHelp = "Auto-root Runnable.run even when explicit roots are configured."
	verboseHelp = "Enable verbose (debug-level) logging."
	versionHelp = "Show version and exit."
	pprofHelp   = "Listening address (e.g. localhost:6060) to serve pprof information."
)

// cliArgs is the parsed command line, collected here (rather than directly
// into plannerconfig.Config) because several flags (classpath, attach,
// events, pprof) aren't planner config at all -- they drive the demo
// binary's own wiring.
type cliArgs struct {
	Classpath     string
	AttachSpec    string
	Events        string
	FilterInclude string
	FilterExclude string
	CacheSize     uint

	NoConstructorInstrumentation bool
	InstrumentEmptyMethods       bool
	InstrumentGetterSetters      bool
	InstrumentSpawnedThreads     bool

	Verbose bool
	Version bool
	PprofAddr string

	fs *flag.FlagSet
}

func parseArgs() (*cliArgs, error) {
	var args cliArgs
	fs := flag.NewFlagSet("planneragent", flag.ExitOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.StringVar(&args.AttachSpec, "attach", "", attachHelp)
	fs.UintVar(&args.CacheSize, "cache-size", 4096, cacheSizeHelp)
	fs.StringVar(&args.Classpath, "classpath", ".", classpathHelp)
	fs.StringVar(&args.Events, "events", "", eventsHelp)
	fs.StringVar(&args.FilterExclude, "filter-exclude", "", filterExcludeHelp)
	fs.StringVar(&args.FilterInclude, "filter-include", "", filterIncludeHelp)
	fs.BoolVar(&args.InstrumentEmptyMethods, "instrument-empty-methods", false, noEmptySkipHelp)
	fs.BoolVar(&args.InstrumentGetterSetters, "instrument-getter-setters", false, noGetterSetterSkipHelp)
	fs.BoolVar(&args.InstrumentSpawnedThreads, "instrument-spawned-threads", false, spawnedThreadsHelp)
	fs.BoolVar(&args.NoConstructorInstrumentation, "no-constructor-instrumentation", false,
		noConstructorHelp)
	fs.StringVar(&args.PprofAddr, "pprof", "", pprofHelp)
	fs.BoolVar(&args.Verbose, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&args.Verbose, "verbose", false, verboseHelp)
	fs.BoolVar(&args.Version, "version", false, versionHelp)

	fs.Usage = func() {
		fs.PrintDefaults()
	}
	args.fs = fs

	return &args, ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PLANNERAGENT"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	)
}

// dump logs every flag's resolved value, used in verbose mode.
func (a *cliArgs) dump(logf func(format string, args ...any)) {
	a.fs.VisitAll(func(f *flag.Flag) {
		logf("%s: %v", f.Name, f.Value)
	})
}
