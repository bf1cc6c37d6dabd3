package quiz

// Curated English vocabularies driving the lexical heuristics. Behavior on
// non-English text or domain-specific vocabulary is undefined; the
// generator then degrades to padding questions.

// speechMotionVerbs mark a neighboring capitalized token as a likely
// character ("...", said Mia. / Milo walked home.).
var speechMotionVerbs = map[string]bool{
	"said":      true,
	"says":      true,
	"asked":     true,
	"asks":      true,
	"replied":   true,
	"shouted":   true,
	"whispered": true,
	"cried":     true,
	"laughed":   true,
	"walked":    true,
	"ran":       true,
	"jumped":    true,
	"went":      true,
	"looked":    true,
	"smiled":    true,
	"thought":   true,
	"wanted":    true,
	"saw":       true,
}

// kinshipRoles are common kinship and role nouns that act as characters in
// children's stories even when lowercased.
var kinshipRoles = map[string]bool{
	"mom":     true,
	"mommy":   true,
	"mother":  true,
	"dad":     true,
	"daddy":   true,
	"father":  true,
	"grandma": true,
	"grandpa": true,
	"sister":  true,
	"brother": true,
	"aunt":    true,
	"uncle":   true,
	"teacher": true,
	"friend":  true,
	"baby":    true,
	"boy":     true,
	"girl":    true,
	"doctor":  true,
}

// prepositions introduce location tokens.
var prepositions = map[string]bool{
	"at":     true,
	"in":     true,
	"on":     true,
	"near":   true,
	"inside": true,
	"under":  true,
	"behind": true,
	"across": true,
	"beside": true,
}

// placeNouns are recognized locations on their own.
var placeNouns = map[string]bool{
	"park":     true,
	"school":   true,
	"home":     true,
	"house":    true,
	"forest":   true,
	"garden":   true,
	"beach":    true,
	"farm":     true,
	"zoo":      true,
	"kitchen":  true,
	"bedroom":  true,
	"library":  true,
	"village":  true,
	"mountain": true,
	"river":    true,
	"lake":     true,
	"store":    true,
	"castle":   true,
}

// actionVerbs are past-tense verbs worth asking about.
var actionVerbs = map[string]bool{
	"played":     true,
	"walked":     true,
	"ran":        true,
	"jumped":     true,
	"climbed":    true,
	"helped":     true,
	"found":      true,
	"built":      true,
	"made":       true,
	"painted":    true,
	"cooked":     true,
	"sang":       true,
	"danced":     true,
	"swam":       true,
	"explored":   true,
	"discovered": true,
	"learned":    true,
	"shared":     true,
	"visited":    true,
	"planted":    true,
}

// commonFillers are capitalized tokens that are never characters.
var commonFillers = map[string]bool{
	"the":   true,
	"a":     true,
	"an":    true,
	"and":   true,
	"but":   true,
	"then":  true,
	"when":  true,
	"one":   true,
	"once":  true,
	"it":    true,
	"he":    true,
	"she":   true,
	"they":  true,
	"we":    true,
	"i":     true,
	"you":   true,
	"there": true,
	"this":  true,
	"that":  true,
	"so":    true,
	"oh":    true,
	"what":  true,
	"why":   true,
	"how":   true,
}

// Fixed-vocabulary distractors drawn when a category has too few real
// candidates. Duplicates against already-chosen options are rejected and
// another distractor is drawn.
var (
	characterDistractors = []string{
		"The narrator",
		"A friendly stranger",
		"The next-door neighbor",
		"A talking animal",
		"The mail carrier",
	}

	locationDistractors = []string{
		"the moon",
		"a pirate ship",
		"the desert",
		"an ice palace",
		"the museum",
	}

	actionDistractors = []string{
		"slept",
		"vanished",
		"flew",
		"tumbled",
		"whistled",
	}

	themeDistractors = []string{
		"dinosaurs",
		"cooking",
		"the weather",
		"racing cars",
		"outer space",
	}
)
