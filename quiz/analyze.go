package quiz

import (
	"sort"
	"strings"
	"unicode"

	"github.com/bbalet/stopwords"
	"github.com/jdkato/prose/v2"

	"github.com/abiiranathan/readalong/book"
)

// analysis is the extracted signal of a document: ranked candidates per
// heuristic category.
type analysis struct {
	characters []string // frequency-ranked, best first
	locations  []string
	actions    []string
	concepts   []string
	pageCount  int
}

// candidateSet counts normalized tokens while remembering a display form
// and first-appearance order, so ranking is deterministic.
type candidateSet struct {
	counts  map[string]int
	display map[string]string
	first   map[string]int
	next    int
}

func newCandidateSet() *candidateSet {
	return &candidateSet{
		counts:  make(map[string]int),
		display: make(map[string]string),
		first:   make(map[string]int),
	}
}

func (c *candidateSet) add(display string) {
	key := strings.ToLower(display)
	if key == "" {
		return
	}
	if _, seen := c.counts[key]; !seen {
		c.display[key] = display
		c.first[key] = c.next
	}
	c.counts[key]++
	c.next++
}

// ranked returns display forms ordered by descending count, ties broken by
// first appearance.
func (c *candidateSet) ranked(minCount int) []string {
	keys := make([]string, 0, len(c.counts))
	for key, count := range c.counts {
		if count >= minCount {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if c.counts[keys[i]] != c.counts[keys[j]] {
			return c.counts[keys[i]] > c.counts[keys[j]]
		}
		return c.first[keys[i]] < c.first[keys[j]]
	})

	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = c.display[key]
	}
	return out
}

// analyze runs the lexical heuristics over the ready pages of a document.
func analyze(pages []book.PageRecord) analysis {
	characters := newCandidateSet()
	locations := newCandidateSet()
	actions := newCandidateSet()

	var full strings.Builder
	pageCount := 0

	for _, page := range pages {
		if !page.Ready || len(page.Words) == 0 {
			continue
		}
		pageCount++
		full.WriteString(page.Text)
		full.WriteByte('\n')

		words := page.Words
		for i, raw := range words {
			w := trimToken(raw)
			if w == "" {
				continue
			}
			lower := strings.ToLower(w)

			// Characters: a capitalized token next to a speech/motion
			// verb, or a kinship/role noun anywhere.
			if kinshipRoles[lower] {
				characters.add(capitalize(lower))
			} else if isCapitalized(w) && !commonFillers[lower] && nearVerb(words, i) {
				characters.add(w)
			}

			// Locations: a known place noun, or whatever follows a
			// preposition.
			if placeNouns[lower] {
				locations.add(lower)
			} else if i > 0 {
				prev := strings.ToLower(trimToken(words[i-1]))
				if prepositions[prev] && !commonFillers[lower] && len(lower) > 2 {
					locations.add(lower)
				}
			}

			// Actions: the past-tense verb vocabulary.
			if actionVerbs[lower] {
				actions.add(lower)
			}
		}
	}

	text := full.String()
	addTaggedCandidates(text, characters, actions)

	return analysis{
		characters: characters.ranked(1),
		locations:  locations.ranked(1),
		actions:    actions.ranked(1),
		concepts:   conceptCandidates(text),
		pageCount:  pageCount,
	}
}

// addTaggedCandidates backs the fixed vocabularies with POS tags: proper
// nouns (NNP) count toward characters and past-tense verbs (VBD) toward
// actions.
func addTaggedCandidates(text string, characters, actions *candidateSet) {
	if strings.TrimSpace(text) == "" {
		return
	}

	doc, err := prose.NewDocument(text, prose.WithExtraction(false))
	if err != nil {
		return
	}

	for _, token := range doc.Tokens() {
		w := trimToken(token.Text)
		if w == "" || commonFillers[strings.ToLower(w)] {
			continue
		}
		switch token.Tag {
		case "NNP":
			if isCapitalized(w) {
				characters.add(w)
			}
		case "VBD":
			actions.add(strings.ToLower(w))
		}
	}
}

// conceptCandidates ranks remaining content words: longer than 3 runes,
// not stop words, appearing at least twice.
func conceptCandidates(text string) []string {
	cleaned := stopwords.CleanString(strings.ToLower(text), "en", false)

	concepts := newCandidateSet()
	for _, raw := range strings.Fields(cleaned) {
		w := trimToken(raw)
		if len([]rune(w)) > 3 {
			concepts.add(w)
		}
	}
	return concepts.ranked(2)
}

// nearVerb reports whether a speech/motion verb sits within two tokens of
// position i.
func nearVerb(words []string, i int) bool {
	for j := max(0, i-2); j <= min(len(words)-1, i+2); j++ {
		if j == i {
			continue
		}
		if speechMotionVerbs[strings.ToLower(trimToken(words[j]))] {
			return true
		}
	}
	return false
}

func trimToken(raw string) string {
	return strings.TrimFunc(raw, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func capitalize(w string) string {
	runes := []rune(w)
	if len(runes) == 0 {
		return w
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func isCapitalized(w string) bool {
	runes := []rune(w)
	if len(runes) < 2 {
		return false
	}
	return unicode.IsUpper(runes[0]) && unicode.IsLower(runes[1])
}
