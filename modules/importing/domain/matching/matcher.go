package matching

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Tier identifies which cascade stage produced a match.
type Tier int

const (
	TierLearned Tier = iota + 1
	TierExact
	TierSubstring
	TierFuzzy
)

func (t Tier) String() string {
	switch t {
	case TierLearned:
		return "learned"
	case TierExact:
		return "exact"
	case TierSubstring:
		return "substring"
	case TierFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Patterns maps exact raw values (untrimmed, as the operator originally saw
// them) to catalog ids, accumulated from past operator resolutions.
type Patterns map[string]int64

// Match is a resolved reference.
type Match struct {
	ID    int64
	Label string
	Tier  Tier
}

// maxFuzzyDistance is the length-proportional edit-distance tolerance:
// min(3, len/4+1). Short values get little slack; a couple of typos are
// tolerated on longer names.
func maxFuzzyDistance(value string) int {
	bound := len([]rune(value))/4 + 1
	if bound > 3 {
		bound = 3
	}
	return bound
}

// Find runs the strategy cascade against one catalog index; first hit wins.
// Learned patterns encode explicit past operator intent and outrank every
// other tier. When the substring or fuzzy tier observes more than one
// equally good candidate the value is ambiguous and reported as missing,
// never guessed. Deterministic for a fixed index and pattern set.
func Find(raw string, ix *Index, patterns Patterns) (Match, bool) {
	if id, ok := patterns[raw]; ok {
		m := Match{ID: id, Tier: TierLearned}
		if ix != nil {
			m.Label, _ = ix.LabelOf(id)
		}
		return m, true
	}

	value := Normalize(raw)
	if value == "" || ix == nil || ix.Empty() {
		return Match{}, false
	}

	if id, ok := ix.Lookup(value); ok {
		label, _ := ix.LabelOf(id)
		return Match{ID: id, Label: label, Tier: TierExact}, true
	}

	if m, ok, ambiguous := substringMatch(value, ix); ok {
		return m, true
	} else if ambiguous {
		return Match{}, false
	}

	return fuzzyMatch(value, ix)
}

func substringMatch(value string, ix *Index) (Match, bool, bool) {
	winner := int64(0)
	found := false
	valueRoot := wordRoot(value)
	for _, key := range ix.keys {
		hit := strings.Contains(key, value) ||
			strings.Contains(value, key) ||
			rootsEqual(valueRoot, wordRoot(key))
		if !hit {
			continue
		}
		id := ix.ids[key]
		if found && id != winner {
			return Match{}, false, true
		}
		if !found {
			winner = id
			found = true
		}
	}
	if !found {
		return Match{}, false, false
	}
	label, _ := ix.LabelOf(winner)
	return Match{ID: winner, Label: label, Tier: TierSubstring}, true, false
}

func fuzzyMatch(value string, ix *Index) (Match, bool) {
	bound := maxFuzzyDistance(value)
	best := bound + 1
	winner := int64(0)
	found := false
	tied := false
	for _, key := range ix.keys {
		d := fuzzy.LevenshteinDistance(value, key)
		if d > bound || d > best {
			continue
		}
		id := ix.ids[key]
		if found && d == best {
			if id != winner {
				tied = true
			}
			continue
		}
		best = d
		winner = id
		found = true
		tied = false
	}
	if !found || tied {
		return Match{}, false
	}
	label, _ := ix.LabelOf(winner)
	return Match{ID: winner, Label: label, Tier: TierFuzzy}, true
}
