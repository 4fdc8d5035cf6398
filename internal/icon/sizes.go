package icon

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Ladder is every frame size a preset can select, smallest first.
var Ladder = []int{16, 24, 32, 48, 64, 96, 128, 256, 512, 1024}

// DefaultMaxSize is used when a preset cannot be parsed.
const DefaultMaxSize = 256

// DefaultPreset is the preset used when none is configured.
const DefaultPreset = "16–256"

// Presets lists the named size presets, largest first.
var Presets = []string{
	"16–1024",
	"16–512",
	"16–256",
	"16–128",
	"16–64",
	"16–48",
	"16–32",
	"16–16",
}

// PresetSizes expands a preset such as "16–256" (en dash or hyphen) to the
// ladder entries up to its maximum. 16 is always included.
func PresetSizes(preset string) []int {
	maxSize := DefaultMaxSize
	normalized := strings.ReplaceAll(preset, "–", "-")
	if i := strings.LastIndex(normalized, "-"); i >= 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(normalized[i+1:])); err == nil && n > 0 {
			maxSize = n
		}
	}

	sizes := []int{}
	for _, s := range Ladder {
		if s <= maxSize {
			sizes = append(sizes, s)
		}
	}
	if len(sizes) == 0 || sizes[0] != 16 {
		sizes = append([]int{16}, sizes...)
	}
	return sizes
}

// ParseSizes reads a comma or space separated list such as "16,32,48".
func ParseSizes(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})

	sizes := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", f, err)
		}
		sizes = append(sizes, n)
	}

	sizes = NormalizeSizes(sizes)
	if len(sizes) == 0 {
		return nil, ErrNoSizes
	}
	return sizes, nil
}

// NormalizeSizes drops non-positive values and duplicates and sorts ascending.
func NormalizeSizes(sizes []int) []int {
	seen := make(map[int]struct{}, len(sizes))
	out := make([]int, 0, len(sizes))
	for _, s := range sizes {
		if s <= 0 {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// Padding preset names.
const (
	PaddingTight    = "tight"
	PaddingBalanced = "balanced"
	PaddingExtra    = "extra"
)

// paddingRatios is the fraction of the canvas edge the artwork occupies.
var paddingRatios = map[string]float64{
	PaddingTight:    0.96,
	PaddingBalanced: 0.88,
	PaddingExtra:    0.80,
}

// PaddingRatio returns the margin ratio for a preset name; unknown names
// fall back to balanced.
func PaddingRatio(name string) float64 {
	if r, ok := paddingRatios[strings.ToLower(strings.TrimSpace(name))]; ok {
		return r
	}
	return paddingRatios[PaddingBalanced]
}

// squareSide is the canvas edge that gives w×h artwork the requested ratio.
func squareSide(w, h int, ratio float64) int {
	longest := w
	if h > longest {
		longest = h
	}
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	side := int(math.Ceil(float64(longest) / ratio))
	if side < longest {
		side = longest
	}
	return side
}
