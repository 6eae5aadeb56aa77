package executive

import (
	"strings"

	"github.com/tossww/open-insider-trader/internal/signalconfig"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// DefaultWeight is returned for non-empty titles that match no configured title
const DefaultWeight = 0.3

// Tier groups executive weights for display and filtering
type Tier string

const (
	TierCSuite  Tier = "C-Suite"
	TierVP      Tier = "VP"
	TierOther   Tier = "Other"
	TierUnknown Tier = "Unknown"
)

// Classification is the full result for one officer title
type Classification struct {
	Title  string  `json:"title"`
	Weight float64 `json:"weight"`
	Tier   Tier    `json:"tier"`
}

type titleWeight struct {
	title  string // lower-case
	weight float64
}

// Classifier maps free-text officer titles to weights in [0, 1]
// ⭐ SSOT: 임원 직책 가중치 계산은 여기서만
type Classifier struct {
	entries []titleWeight
	logger  *logger.Logger
}

// NewClassifier creates a classifier over the configured title table
func NewClassifier(cfg *signalconfig.Config, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.Nop()
	}

	// 정렬된 순서로 고정 (map 순회 순서 비결정성 제거)
	titles := cfg.ExecutiveTitles()
	entries := make([]titleWeight, 0, len(titles))
	for _, title := range titles {
		entries = append(entries, titleWeight{
			title:  strings.ToLower(strings.TrimSpace(title)),
			weight: cfg.ExecutiveWeights[title],
		})
	}

	return &Classifier{
		entries: entries,
		logger:  log.Module("executive"),
	}
}

// Weight returns the executive weight of an officer title.
//
//   - empty or whitespace-only title: 0.0
//   - case-insensitive exact match: that weight
//   - otherwise the maximum weight over configured titles contained in the
//     input or containing it ("Executive Vice President" matches VP and EVP)
//   - no match: DefaultWeight
func (c *Classifier) Weight(title string) float64 {
	normalized := strings.ToLower(strings.TrimSpace(title))
	if normalized == "" {
		return 0.0
	}

	for _, e := range c.entries {
		if normalized == e.title {
			return e.weight
		}
	}

	matched := false
	best := 0.0
	for _, e := range c.entries {
		if strings.Contains(normalized, e.title) || strings.Contains(e.title, normalized) {
			if !matched || e.weight > best {
				best = e.weight
			}
			matched = true
		}
	}
	if matched {
		return best
	}

	c.logger.WithField("title", title).Debug("No executive title match, using default weight")
	return DefaultWeight
}

// Classify returns the weight together with its tier
func (c *Classifier) Classify(title string) Classification {
	weight := c.Weight(title)
	return Classification{
		Title:  title,
		Weight: weight,
		Tier:   TierFor(weight),
	}
}

// TierFor buckets a weight: C-Suite >= 1.0, VP >= 0.5, Other > 0
func TierFor(weight float64) Tier {
	switch {
	case weight >= 1.0:
		return TierCSuite
	case weight >= 0.5:
		return TierVP
	case weight > 0:
		return TierOther
	default:
		return TierUnknown
	}
}
