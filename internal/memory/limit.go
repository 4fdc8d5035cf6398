package memory

import (
	"fmt"
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"icon-sync/internal/logging"
)

// DefaultRatio is the share of the memory limit given to the Go heap. The
// rest covers libvips, goroutine stacks and decode buffers.
const DefaultRatio = 0.85

// Environment variables read by ConfigureFromEnv.
const (
	EnvLimit = "ICONSYNC_MEMORY_LIMIT"
	EnvRatio = "ICONSYNC_MEMORY_RATIO"
)

// LimitResult describes what ConfigureFromEnv did.
type LimitResult struct {
	Configured bool
	// Source is "GOMEMLIMIT", EnvLimit or "none".
	Source     string
	Limit      int64
	GoMemLimit int64
	Ratio      float64
}

// ConfigureFromEnv sets the soft memory limit. Call it before the first
// large allocation.
func ConfigureFromEnv() LimitResult {
	return configure(os.Getenv, debug.SetMemoryLimit)
}

func configure(getenv func(string) string, setLimit func(int64) int64) LimitResult {
	if v := getenv("GOMEMLIMIT"); v != "" {
		result := LimitResult{Source: "GOMEMLIMIT"}
		if limit := setLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return result
	}

	raw := getenv(EnvLimit)
	if raw == "" {
		logging.Debug("%s not set, no memory limit configured", EnvLimit)
		return LimitResult{Source: "none"}
	}
	limit, err := ParseBytes(raw)
	if err != nil {
		logging.Warn("Ignoring %s: %v", EnvLimit, err)
		return LimitResult{Source: "none"}
	}

	ratio := DefaultRatio
	if v := getenv(EnvRatio); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		switch {
		case err != nil:
			logging.Warn("Failed to parse %s %q: %v, using %.2f", EnvRatio, v, err, DefaultRatio)
		case r <= 0 || r > 1:
			logging.Warn("%s %q out of range (0-1], using %.2f", EnvRatio, v, DefaultRatio)
		default:
			ratio = r
		}
	}

	goLimit := int64(float64(limit) * ratio)
	setLimit(goLimit)
	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s)", FormatBytes(goLimit), ratio*100, FormatBytes(limit))

	return LimitResult{
		Configured: true,
		Source:     EnvLimit,
		Limit:      limit,
		GoMemLimit: goLimit,
		Ratio:      ratio,
	}
}

var byteUnits = []struct {
	suffix string
	mult   int64
}{
	{"gib", 1 << 30},
	{"mib", 1 << 20},
	{"kib", 1 << 10},
	{"gb", 1 << 30},
	{"mb", 1 << 20},
	{"kb", 1 << 10},
	{"b", 1},
}

// ParseBytes reads a positive size such as "536870912", "512MiB" or "1GiB".
func ParseBytes(s string) (int64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	mult := int64(1)
	for _, u := range byteUnits {
		if strings.HasSuffix(v, u.suffix) {
			v = strings.TrimSpace(strings.TrimSuffix(v, u.suffix))
			mult = u.mult
			break
		}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if n > math.MaxInt64/mult {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return n * mult, nil
}

// FormatBytes renders b with a binary unit, e.g. "1.5 GiB".
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
