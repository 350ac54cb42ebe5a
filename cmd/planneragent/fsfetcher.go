// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/elastic/jfluid-agent/internal/classrecord"
)

// fsFetcher is the reference classcache.Fetcher implementation: it reads
// "<root>/<internal-name>.class" off the local filesystem. Loader id is
// ignored -- this demo binary has no notion of distinct custom class
// loaders, only the bootstrap/"whatever loaded this class" loader, which
// is exactly the on-disk class-file loader/cache spec.md §1 treats as an
// external collaborator.
type fsFetcher struct {
	root string
}

func (f *fsFetcher) Fetch(_ context.Context, name string, _ classrecord.LoaderID) ([]byte, error) {
	path := filepath.Join(f.root, name+".class")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fsfetcher: %w", err)
	}
	return data, nil
}
