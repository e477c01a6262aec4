package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Cache file format:
//
//	[4 bytes: magic "BSEG"]
//	[4 bytes: version (uint32 LE)]
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON metadata]
//	[32 bytes: SHA-256 checksum of the data section]
//	[data section]
//
// The data section holds, per image, the decoded CHW float32 pixels (LE)
// followed by the HW uint8 mask, and finally every sample as four int32
// (image, x, y, class). The header's scan signature ties the cache to the
// exact corpus files it was built from; a signature mismatch invalidates
// the whole file.
const (
	cacheMagic   = "BSEG"
	cacheVersion = 1
	checksumSize = 32
)

// cacheHeader is the JSON header of a cache file.
type cacheHeader struct {
	Version     int         `json:"version"`
	Signature   string      `json:"signature"`
	PatchSize   int         `json:"patch_size"`
	ClassToSkip int         `json:"class_to_skip"`
	Images      []imageMeta `json:"images"`
	NumSamples  int         `json:"num_samples"`
	Classes     []int       `json:"classes"`
}

type imageMeta struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// signature hashes the pair list with file sizes and mod times, so any
// added, removed or touched corpus file invalidates the cache.
func signature(pairs []pair) (string, error) {
	h := sha256.New()
	for _, p := range pairs {
		for _, path := range []string{p.imagePath, p.maskPath} {
			info, err := os.Stat(path)
			if err != nil {
				return "", fmt.Errorf("dataset: stat %s: %w", path, err)
			}
			fmt.Fprintf(h, "%s|%d|%d\n", path, info.Size(), info.ModTime().UnixNano())
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// writeCache serializes the dataset to cfg.CachePath.
func writeCache(cfg Config, sig string, ds *Dataset) error {
	header := cacheHeader{
		Version:     cacheVersion,
		Signature:   sig,
		PatchSize:   cfg.PatchSize,
		ClassToSkip: cfg.ClassToSkip,
		NumSamples:  len(ds.samples),
		Classes:     ds.classes,
	}
	for _, img := range ds.images {
		header.Images = append(header.Images, imageMeta{
			Name: img.name, Width: img.width, Height: img.height,
		})
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("dataset: marshal cache header: %w", err)
	}

	var data bytes.Buffer
	for _, img := range ds.images {
		for _, v := range img.pixels {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			data.Write(buf[:])
		}
		data.Write(img.mask)
	}
	for _, s := range ds.samples {
		var buf [16]byte
		binary.LittleEndian.PutUint32(buf[0:], uint32(s.Image))
		binary.LittleEndian.PutUint32(buf[4:], uint32(s.X))
		binary.LittleEndian.PutUint32(buf[8:], uint32(s.Y))
		binary.LittleEndian.PutUint32(buf[12:], uint32(s.Class))
		data.Write(buf[:])
	}

	checksum := sha256.Sum256(data.Bytes())

	var out bytes.Buffer
	out.WriteString(cacheMagic)
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], cacheVersion)
	out.Write(u32[:])
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(len(headerJSON)))
	out.Write(u64[:])
	out.Write(headerJSON)
	out.Write(checksum[:])
	out.Write(data.Bytes())

	if err := os.WriteFile(cfg.CachePath, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("dataset: write cache: %w", err)
	}
	return nil
}

// readCache loads the dataset from cfg.CachePath, failing if the file is
// malformed, checksum-corrupted, built with different parameters, or stale
// with respect to the scan signature.
func readCache(cfg Config, sig string) (*Dataset, error) {
	//nolint:gosec // G304: cache path comes from the caller's configuration
	raw, err := os.ReadFile(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("dataset: read cache: %w", err)
	}

	if len(raw) < len(cacheMagic)+12 || string(raw[:4]) != cacheMagic {
		return nil, ErrInvalidMagic
	}
	version := binary.LittleEndian.Uint32(raw[4:8])
	if version != cacheVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	headerSize := binary.LittleEndian.Uint64(raw[8:16])
	rest := raw[16:]
	if uint64(len(rest)) < headerSize+checksumSize {
		return nil, fmt.Errorf("dataset: truncated cache header")
	}

	var header cacheHeader
	if err := json.Unmarshal(rest[:headerSize], &header); err != nil {
		return nil, fmt.Errorf("dataset: unmarshal cache header: %w", err)
	}
	if header.Signature != sig {
		return nil, ErrStaleCache
	}
	if header.PatchSize != cfg.PatchSize || header.ClassToSkip != cfg.ClassToSkip {
		return nil, fmt.Errorf("%w: built with different parameters", ErrStaleCache)
	}

	var stored [checksumSize]byte
	copy(stored[:], rest[headerSize:headerSize+checksumSize])
	data := rest[headerSize+checksumSize:]
	if sha256.Sum256(data) != stored {
		return nil, ErrChecksumMismatch
	}

	if header.NumSamples < 0 {
		return nil, fmt.Errorf("%w: %d samples", ErrCorruptHeader, header.NumSamples)
	}

	ds := &Dataset{cfg: cfg, classes: header.Classes}
	off := 0
	for _, meta := range header.Images {
		// Decoded values come from an untrusted file; reject anything
		// that cannot describe a real image before sizing allocations.
		const maxSide = 1 << 20
		if meta.Width <= 0 || meta.Height <= 0 || meta.Width > maxSide || meta.Height > maxSide {
			return nil, fmt.Errorf("%w: image %s is %dx%d", ErrCorruptHeader, meta.Name, meta.Width, meta.Height)
		}
		n := meta.Width * meta.Height
		pixelBytes := channels * n * 4
		if off+pixelBytes+n > len(data) {
			return nil, fmt.Errorf("dataset: truncated cache data for image %s", meta.Name)
		}
		entry := &imageEntry{
			name:   meta.Name,
			width:  meta.Width,
			height: meta.Height,
			pixels: make([]float32, channels*n),
			mask:   make([]uint8, n),
		}
		for i := range entry.pixels {
			entry.pixels[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off+i*4:]))
		}
		off += pixelBytes
		copy(entry.mask, data[off:off+n])
		off += n
		ds.images = append(ds.images, entry)
	}

	if header.NumSamples > (len(data)-off)/16 {
		return nil, fmt.Errorf("dataset: truncated cache sample index")
	}
	ds.samples = make([]Sample, header.NumSamples)
	for i := range ds.samples {
		base := off + i*16
		ds.samples[i] = Sample{
			Image: int(int32(binary.LittleEndian.Uint32(data[base:]))),
			X:     int(int32(binary.LittleEndian.Uint32(data[base+4:]))),
			Y:     int(int32(binary.LittleEndian.Uint32(data[base+8:]))),
			Class: int(int32(binary.LittleEndian.Uint32(data[base+12:]))),
		}
	}
	return ds, nil
}
