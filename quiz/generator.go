// Package quiz derives multiple-choice comprehension questions from the
// extracted pages of a finished book.
//
// Extraction is purely lexical: a handful of curated vocabularies plus POS
// tags, no external NLP service. The generator never fails: when the text
// yields too little signal it pads with generic questions so callers always
// receive exactly the requested count.
package quiz

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/abiiranathan/readalong/book"
)

// DefaultTargetCount is the quiz size the reading UI expects.
const DefaultTargetCount = 5

// Question is one multiple-choice comprehension question. Options contain
// no duplicates and exactly one correct answer.
type Question struct {
	ID                 int      `json:"id"`
	Prompt             string   `json:"prompt"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	Explanation        string   `json:"explanation,omitempty"`
}

// Config controls generation.
type Config struct {
	// Seed for option shuffling. 0 seeds from the clock, so a retaken
	// quiz is shuffled independently.
	Seed int64

	Logger *slog.Logger
}

// Generator builds quizzes. The archetype question set is a pure function
// of the input pages; only option order varies between runs.
type Generator struct {
	rng    *rand.Rand
	logger *slog.Logger
}

// New creates a Generator.
func New(cfg Config) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), logger: logger}
}

// Generate derives exactly targetCount questions from the ordered pages of
// a document. It never returns an error: missing signal degrades to
// padding, because the consuming UI always expects a full quiz.
func (g *Generator) Generate(pages []book.PageRecord, title string, targetCount int) []Question {
	if targetCount <= 0 {
		targetCount = DefaultTargetCount
	}

	sig := analyze(pages)
	questions := make([]Question, 0, targetCount)

	if q, ok := g.whoQuestion(sig); ok {
		questions = append(questions, q)
	}
	if q, ok := g.whereQuestion(sig); ok {
		questions = append(questions, q)
	}
	if q, ok := g.whatQuestion(sig); ok {
		questions = append(questions, q)
	}
	if q, ok := g.sequenceQuestion(sig); ok {
		questions = append(questions, q)
	}
	if q, ok := g.themeQuestion(sig, title); ok {
		questions = append(questions, q)
	}

	if len(questions) > targetCount {
		questions = questions[:targetCount]
	}

	synthesized := len(questions)
	for i := 0; len(questions) < targetCount; i++ {
		questions = append(questions, g.paddingQuestion(i, title, len(pages)))
	}

	// Dense ids 1..targetCount regardless of synthesis order.
	for i := range questions {
		questions[i].ID = i + 1
	}

	g.logger.Debug("quiz generated",
		"book", title, "questions", len(questions), "synthesized", synthesized)
	return questions
}

func (g *Generator) whoQuestion(sig analysis) (Question, bool) {
	if len(sig.characters) < 3 {
		return Question{}, false
	}

	protagonist := sig.characters[0]
	options, correct := g.buildOptions(protagonist, sig.characters[1:], characterDistractors)
	return Question{
		Prompt:             "Who is the main character of the story?",
		Options:            options,
		CorrectOptionIndex: correct,
		Explanation:        fmt.Sprintf("%s appears most often in the story.", protagonist),
	}, true
}

func (g *Generator) whereQuestion(sig analysis) (Question, bool) {
	if len(sig.locations) < 2 {
		return Question{}, false
	}

	place := sig.locations[0]
	options, correct := g.buildOptions(place, sig.locations[1:], locationDistractors)
	return Question{
		Prompt:             "Where does the story mostly take place?",
		Options:            options,
		CorrectOptionIndex: correct,
		Explanation:        fmt.Sprintf("The story keeps coming back to the %s.", place),
	}, true
}

func (g *Generator) whatQuestion(sig analysis) (Question, bool) {
	if len(sig.actions) < 2 || len(sig.characters) == 0 {
		return Question{}, false
	}

	action := sig.actions[0]
	options, correct := g.buildOptions(action, sig.actions[1:], actionDistractors)
	return Question{
		Prompt:             fmt.Sprintf("What did %s do in the story?", sig.characters[0]),
		Options:            options,
		CorrectOptionIndex: correct,
	}, true
}

func (g *Generator) sequenceQuestion(sig analysis) (Question, bool) {
	if len(sig.actions) < 2 || sig.pageCount < 2 {
		return Question{}, false
	}

	// Actions are ranked with first appearance as the tiebreak, so the
	// earliest frequent action stands in for "first".
	first := sig.actions[0]
	options, correct := g.buildOptions(first, sig.actions[1:], actionDistractors)
	return Question{
		Prompt:             "Which of these happened early in the story?",
		Options:            options,
		CorrectOptionIndex: correct,
	}, true
}

func (g *Generator) themeQuestion(sig analysis, title string) (Question, bool) {
	if len(sig.concepts) < 2 {
		return Question{}, false
	}

	theme := sig.concepts[0]
	options, correct := g.buildOptions(theme, sig.concepts[1:], themeDistractors)
	return Question{
		Prompt:             fmt.Sprintf("What is %s mostly about?", displayTitle(title)),
		Options:            options,
		CorrectOptionIndex: correct,
		Explanation:        fmt.Sprintf("The word %q comes up again and again.", theme),
	}, true
}

// buildOptions assembles the answer list: the correct answer, up to two
// other extracted candidates from the same category, then fixed-vocabulary
// distractors until there are four options. Duplicates are rejected and a
// different distractor is drawn. The result is shuffled and the correct
// index tracked through the shuffle.
func (g *Generator) buildOptions(correct string, candidates, distractors []string) ([]string, int) {
	const optionCount = 4

	options := []string{correct}
	for _, c := range candidates {
		if len(options) >= 3 {
			break
		}
		if !containsFold(options, c) {
			options = append(options, c)
		}
	}

	for _, i := range g.rng.Perm(len(distractors)) {
		if len(options) >= optionCount {
			break
		}
		if !containsFold(options, distractors[i]) {
			options = append(options, distractors[i])
		}
	}

	g.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	correctIndex := 0
	for i, opt := range options {
		if opt == correct {
			correctIndex = i
			break
		}
	}
	return options, correctIndex
}

// paddingQuestion is a generic fallback referencing the book's title,
// appended until the quiz reaches its target size.
func (g *Generator) paddingQuestion(i int, title string, pageCount int) Question {
	name := displayTitle(title)

	plain := strings.TrimSpace(title)
	if plain == "" {
		plain = "Untitled"
	}

	switch i % 4 {
	case 0:
		options, correct := g.buildOptions(plain, nil, []string{
			"The Mystery Book", "A Day at the Zoo", "The Big Adventure", "My Lost Sock",
		})
		return Question{
			Prompt:             "What is the title of the story you just read?",
			Options:            options,
			CorrectOptionIndex: correct,
		}
	case 1:
		// Fixed distinct offsets so no pageCount can collapse two
		// distractors into one.
		count := strconv.Itoa(pageCount)
		options, correct := g.buildOptions(count, nil, []string{
			strconv.Itoa(pageCount + 2),
			strconv.Itoa(pageCount + 5),
			strconv.Itoa(pageCount + 9),
		})
		return Question{
			Prompt:             fmt.Sprintf("How many pages does %s have?", name),
			Options:            options,
			CorrectOptionIndex: correct,
		}
	case 2:
		options, correct := g.buildOptions("Read it again", nil, []string{
			"Skip the rest of the book", "Close the book forever", "Guess randomly",
		})
		return Question{
			Prompt:             "What is a good thing to do if part of a story is confusing?",
			Options:            options,
			CorrectOptionIndex: correct,
			Explanation:        "Rereading helps you understand tricky parts.",
		}
	default:
		options, correct := g.buildOptions("Beginning, middle, end", nil, []string{
			"End, beginning, middle", "Middle, end, beginning", "Only the end",
		})
		return Question{
			Prompt:             fmt.Sprintf("In what order did you read %s?", name),
			Options:            options,
			CorrectOptionIndex: correct,
		}
	}
}

func displayTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "this story"
	}
	return fmt.Sprintf("%q", title)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
