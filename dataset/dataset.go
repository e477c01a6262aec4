// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset provides the public API for pixel-labeled segmentation
// corpora.
//
// A corpus is a directory of image/mask pairs (`name.png` next to
// `name_mask.png`). Open decodes every pair, indexes each labeled pixel
// that can anchor a full patch, and serves fixed-size patches centered on
// those pixels. An optional on-disk cache skips decoding on reopen and is
// invalidated whenever the corpus files or the patch parameters change.
//
// Example:
//
//	ds, err := dataset.Open(dataset.Config{
//	    Dir:       "corpora/retina",
//	    PatchSize: 9,
//	    CachePath: "corpora/retina.cache",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	patch, target, err := ds.Patch(ds.Perm(42)[0])
package dataset

import (
	"github.com/born-ml/seqnn/internal/dataset"
)

// Config describes how to open a corpus.
type Config = dataset.Config

// Dataset is an opened, fully indexed corpus.
type Dataset = dataset.Dataset

// Sample is one labeled pixel: the image it belongs to, its coordinates
// and its class.
type Sample = dataset.Sample

// Open scans, decodes and indexes the corpus described by cfg.
// When cfg.CachePath is set, a valid cache is used instead of decoding,
// and a fresh decode writes the cache back on a best-effort basis.
func Open(cfg Config) (*Dataset, error) {
	return dataset.Open(cfg)
}

// Sentinel errors reported by Open and the cache layer. Match with
// errors.Is.
var (
	ErrNoSamples          = dataset.ErrNoSamples
	ErrInvalidMagic       = dataset.ErrInvalidMagic
	ErrUnsupportedVersion = dataset.ErrUnsupportedVersion
	ErrChecksumMismatch   = dataset.ErrChecksumMismatch
	ErrCorruptHeader      = dataset.ErrCorruptHeader
	ErrStaleCache         = dataset.ErrStaleCache
)
