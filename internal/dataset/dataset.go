// Package dataset loads an image-segmentation corpus and serves fixed-size
// training patches centered on labeled pixels.
//
// A corpus is a directory of image/mask pairs: `<name>.png` (or .jpg) plus
// `<name>_mask.png`, where the mask is a grayscale image whose pixel values
// are class labels. Scanning decodes every pair, indexes the labeled pixels
// that can anchor a full patch, and writes the decoded images plus the
// sample index to a binary cache file so subsequent opens skip decoding.
//
// Example:
//
//	ds, err := dataset.Open(dataset.Config{
//	    Dir:         "corpus/",
//	    PatchSize:   33,
//	    ClassToSkip: 0,
//	    CachePath:   "corpus/.seqnn-cache",
//	})
//	patch, target, err := ds.Patch(0)
package dataset

import (
	"fmt"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// Register decoders for the corpus image formats.
	_ "image/jpeg"
	_ "image/png"

	"github.com/born-ml/seqnn/internal/tensor"
)

const channels = 3 // decoded images are served as RGB

// Config describes how to open a corpus.
type Config struct {
	// Dir is the corpus directory to scan.
	Dir string

	// PatchSize is the width and height of served patches. Must be odd so
	// a patch centers exactly on its anchor pixel.
	PatchSize int

	// ClassToSkip is a mask value excluded from sampling, typically the
	// background class. Must be >= 0.
	ClassToSkip int

	// CachePath, when non-empty, enables the on-disk cache at that path.
	CachePath string
}

func (c Config) validate() error {
	if c.Dir == "" {
		return fmt.Errorf("dataset: empty corpus directory")
	}
	if c.PatchSize <= 0 || c.PatchSize%2 == 0 {
		return fmt.Errorf("dataset: patch size must be positive and odd, got %d", c.PatchSize)
	}
	if c.ClassToSkip < 0 {
		return fmt.Errorf("dataset: class to skip must be >= 0, got %d", c.ClassToSkip)
	}
	return nil
}

// Sample anchors one training patch: a labeled pixel in one corpus image.
type Sample struct {
	Image int // index into the dataset's image table
	X, Y  int // anchor pixel position
	Class int // mask value at the anchor
}

// imageEntry holds one decoded image/mask pair.
type imageEntry struct {
	name   string // base name of the image file
	width  int
	height int
	pixels []float32 // CHW, RGB, values in [0, 1]
	mask   []uint8   // HW class labels
}

// Dataset is an opened corpus: decoded images plus the labeled-pixel index.
type Dataset struct {
	cfg     Config
	images  []*imageEntry
	samples []Sample
	classes []int
}

// Open scans the corpus, serving from the cache when it is present and its
// signature still matches the files on disk, decoding from source (and
// rewriting the cache) otherwise.
func Open(cfg Config) (*Dataset, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	pairs, sig, err := scanPairs(cfg.Dir)
	if err != nil {
		return nil, err
	}

	if cfg.CachePath != "" {
		if ds, err := readCache(cfg, sig); err == nil {
			return ds, nil
		}
		// Any cache failure (missing, stale, corrupted) falls back to a
		// full decode.
	}

	ds, err := decodeAll(cfg, pairs)
	if err != nil {
		return nil, err
	}

	if cfg.CachePath != "" {
		// Best effort: a corpus that cannot be cached is still usable.
		_ = writeCache(cfg, sig, ds)
	}
	return ds, nil
}

// Len returns the number of labeled-pixel samples.
func (d *Dataset) Len() int {
	return len(d.samples)
}

// NumImages returns the number of decoded image/mask pairs.
func (d *Dataset) NumImages() int {
	return len(d.images)
}

// Classes returns the distinct class labels present in the sample index,
// ascending.
func (d *Dataset) Classes() []int {
	return d.classes
}

// Sample returns the i-th sample's anchor.
// Panics if i is out of range.
func (d *Dataset) Sample(i int) Sample {
	return d.samples[i]
}

// Perm returns a reproducible pseudo-random visiting order over the
// sample index, for shuffled epochs.
func (d *Dataset) Perm(seed int64) []int {
	return rand.New(rand.NewSource(seed)).Perm(len(d.samples))
}

// Patch extracts the i-th sample's image patch ([3, ps, ps] Float32) and
// mask patch ([ps, ps] Uint8). Both are fresh tensors owned by the caller.
func (d *Dataset) Patch(i int) (*tensor.RawTensor, *tensor.RawTensor, error) {
	if i < 0 || i >= len(d.samples) {
		return nil, nil, fmt.Errorf("dataset: sample index %d out of range [0, %d)", i, len(d.samples))
	}
	s := d.samples[i]
	return extractPatch(d.images[s.Image], s.X, s.Y, d.cfg.PatchSize)
}

// scanPairs lists the corpus image/mask pairs in name order and computes
// the scan signature used for cache invalidation.
func scanPairs(dir string) ([]pair, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", fmt.Errorf("dataset: scan %s: %w", dir, err)
	}

	var pairs []pair
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.Contains(name, "_mask.") || !isImageFile(name) {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		maskPath := filepath.Join(dir, base+"_mask.png")
		if _, err := os.Stat(maskPath); err != nil {
			continue // unpaired image, not part of the corpus
		}
		pairs = append(pairs, pair{
			name:      base,
			imagePath: filepath.Join(dir, name),
			maskPath:  maskPath,
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].name < pairs[j].name })

	sig, err := signature(pairs)
	if err != nil {
		return nil, "", err
	}
	return pairs, sig, nil
}

type pair struct {
	name      string
	imagePath string
	maskPath  string
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}

// decodeAll decodes every pair and builds the labeled-pixel index.
func decodeAll(cfg Config, pairs []pair) (*Dataset, error) {
	ds := &Dataset{cfg: cfg}
	for _, p := range pairs {
		entry, err := decodePair(p)
		if err != nil {
			return nil, err
		}
		ds.images = append(ds.images, entry)
	}
	ds.buildIndex()
	if len(ds.samples) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSamples, cfg.Dir)
	}
	return ds, nil
}

// buildIndex collects every labeled pixel that can anchor a full patch,
// excluding the configured skip class.
func (d *Dataset) buildIndex() {
	margin := d.cfg.PatchSize / 2
	seen := map[int]bool{}
	for imgIdx, img := range d.images {
		for y := margin; y < img.height-margin; y++ {
			for x := margin; x < img.width-margin; x++ {
				class := int(img.mask[y*img.width+x])
				if class == d.cfg.ClassToSkip {
					continue
				}
				d.samples = append(d.samples, Sample{Image: imgIdx, X: x, Y: y, Class: class})
				seen[class] = true
			}
		}
	}
	d.classes = d.classes[:0]
	for class := range seen {
		d.classes = append(d.classes, class)
	}
	sort.Ints(d.classes)
}

func decodePair(p pair) (*imageEntry, error) {
	img, err := decodeImage(p.imagePath)
	if err != nil {
		return nil, err
	}
	mask, err := decodeImage(p.maskPath)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if mb := mask.Bounds(); mb.Dx() != w || mb.Dy() != h {
		return nil, fmt.Errorf("dataset: %s: mask size %dx%d does not match image %dx%d",
			p.name, mb.Dx(), mb.Dy(), w, h)
	}

	entry := &imageEntry{
		name:   p.name,
		width:  w,
		height: h,
		pixels: make([]float32, channels*w*h),
		mask:   make([]uint8, w*h),
	}
	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := y*w + x
			entry.pixels[i] = float32(r>>8) / 255
			entry.pixels[plane+i] = float32(g>>8) / 255
			entry.pixels[2*plane+i] = float32(b>>8) / 255

			mr, _, _, _ := mask.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			entry.mask[i] = uint8(mr >> 8)
		}
	}
	return entry, nil
}

func decodeImage(path string) (image.Image, error) {
	//nolint:gosec // G304: corpus paths come from the configured directory
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: decode %s: %w", path, err)
	}
	return img, nil
}

// extractPatch copies a ps x ps window centered on (x, y) out of the
// stored image and mask.
func extractPatch(img *imageEntry, x, y, ps int) (*tensor.RawTensor, *tensor.RawTensor, error) {
	patch, err := tensor.NewRaw(tensor.Shape{channels, ps, ps}, tensor.Float32)
	if err != nil {
		return nil, nil, err
	}
	target, err := tensor.NewRaw(tensor.Shape{ps, ps}, tensor.Uint8)
	if err != nil {
		return nil, nil, err
	}

	margin := ps / 2
	px := patch.AsFloat32()
	tg := target.AsUint8()
	plane := img.width * img.height
	for c := 0; c < channels; c++ {
		for row := 0; row < ps; row++ {
			srcOff := c*plane + (y-margin+row)*img.width + x - margin
			dstOff := c*ps*ps + row*ps
			copy(px[dstOff:dstOff+ps], img.pixels[srcOff:srcOff+ps])
		}
	}
	for row := 0; row < ps; row++ {
		srcOff := (y-margin+row)*img.width + x - margin
		copy(tg[row*ps:(row+1)*ps], img.mask[srcOff:srcOff+ps])
	}
	return patch, target, nil
}
