package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/abiiranathan/readalong/book"
	"github.com/abiiranathan/readalong/cli"
	"github.com/abiiranathan/readalong/loader"
	"github.com/abiiranathan/readalong/narration"
	"github.com/abiiranathan/readalong/pdf"
	"github.com/abiiranathan/readalong/progress"
	"github.com/abiiranathan/readalong/quiz"
	"github.com/abiiranathan/readalong/reader"
	"github.com/abiiranathan/readalong/routes"
	"github.com/abiiranathan/readalong/server"
	"golang.org/x/sync/errgroup"
)

// Default configuration for the CLI
var config = &cli.DefaultConfig

func newSynthesizer() narration.Synthesizer {
	if config.TTSBaseURL == "" {
		return nil
	}
	synth, err := narration.NewHTTPSynthesizer(narration.HTTPConfig{
		BaseURL: config.TTSBaseURL,
	})
	if err != nil {
		log.Fatalln(err)
	}
	return synth
}

func newRecorder() *progress.Store {
	if config.ProgressDB == "" {
		return nil
	}
	store, err := progress.Open(config.ProgressDB)
	if err != nil {
		log.Fatalln(err)
	}
	return store
}

func openHandle() book.DocumentHandle {
	numPages, err := pdf.CountPages(config.Filename)
	if err != nil {
		log.Fatalln(err)
	}
	return book.NewHandle(config.Filename, numPages)
}

// runRead streams the book to stdout page by page, narrating each page if
// a speech service is configured and recording progress as it goes.
func runRead() {
	handle := openHandle()
	extractor := pdf.NewExtractor(pdf.Config{})

	ld := loader.New(extractor, loader.Config{
		NearPageCount:   config.NearPages,
		NearYield:       time.Duration(config.NearYieldMs) * time.Millisecond,
		BackgroundYield: time.Duration(config.BackgroundYieldMs) * time.Millisecond,
	})

	var narrator reader.Narrator
	if synth := newSynthesizer(); synth != nil {
		narrator = narration.New(synth, narration.Config{
			PollInterval: time.Duration(config.PollIntervalMs) * time.Millisecond,
			Voice:        config.Voice,
		})
	}

	var recorder reader.Recorder
	store := newRecorder()
	if store != nil {
		defer store.Close()
		recorder = store
	}

	session := reader.New(handle, ld, narrator, recorder, reader.Config{
		QuizSize: config.QuizSize,
		// The terminal turns pages, not the narration clock.
		DisableAutoAdvance: true,
	})
	defer session.Close()

	stream, err := session.Start(context.Background())
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Printf("%s (%d pages)\n\n", handle.Title, handle.NumPages)
	for rec := range stream {
		if rec.Err != nil {
			fmt.Printf("--- Page %d unavailable: %v\n\n", rec.PageNumber, rec.Err)
		} else {
			fmt.Printf("--- Page %d (%d words)\n%s\n\n", rec.PageNumber, len(rec.Words), rec.Text)
		}
		if rec.PageNumber > 1 {
			session.NextPage()
		}
	}
	session.NextPage() // past the last page marks the book finished

	fmt.Println("Quiz time!")
	printQuiz(session.Quiz(config.QuizSize))
}

// extractAll decodes every page concurrently. Failed pages are recorded
// and skipped, the same policy as the progressive loader; the quiz
// generator degrades to padding when too few pages carry text.
func extractAll(extractor loader.Extractor, handle book.DocumentHandle, limit int) []book.PageRecord {
	pages := make([]book.PageRecord, handle.NumPages)
	group := errgroup.Group{}
	group.SetLimit(limit)

	var mu sync.Mutex
	for pageNumber := 1; pageNumber <= handle.NumPages; pageNumber++ {
		group.Go(func() error {
			rec, err := extractor.Extract(context.Background(), handle, pageNumber)
			if err != nil {
				log.Printf("page %d skipped: %v\n", pageNumber, err)
				rec = book.PageRecord{PageNumber: pageNumber, Err: err}
			}
			mu.Lock()
			pages[pageNumber-1] = rec
			mu.Unlock()
			return nil
		})
	}
	group.Wait()
	return pages
}

// runQuiz extracts every page concurrently and prints the quiz as JSON.
func runQuiz() {
	handle := openHandle()
	extractor := pdf.NewExtractor(pdf.Config{})

	pages := extractAll(extractor, handle, config.MaxConcurrency)
	questions := quiz.New(quiz.Config{}).Generate(pages, handle.Title, config.QuizSize)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(questions); err != nil {
		log.Fatalln(err)
	}
}

func startServer() {
	var recorder reader.Recorder
	if store := newRecorder(); store != nil {
		recorder = store
	}

	lib := routes.NewLibrary(
		pdf.NewExtractor(pdf.Config{}),
		newSynthesizer(),
		recorder,
		pdf.CountPages,
		routes.Options{
			NearPages: config.NearPages,
			QuizSize:  config.QuizSize,
			Voice:     config.Voice,
		},
	)
	server.Run(config, lib)
}

func printQuiz(questions []quiz.Question) {
	for _, q := range questions {
		fmt.Printf("%d. %s\n", q.ID, q.Prompt)
		for i, option := range q.Options {
			marker := " "
			if i == q.CorrectOptionIndex {
				marker = "*"
			}
			fmt.Printf("  %s %c) %s\n", marker, 'a'+i, option)
		}
	}
}

func main() {
	log.SetPrefix("[readalong]: ")
	log.SetFlags(log.Lshortfile)

	// Set the locale to the system's default
	pdf.SetLocale()

	// Parse the command line arguments
	ctx := cli.DefineFlags(config, cli.Handlers{
		Read:      runRead,
		Quiz:      runQuiz,
		RunServer: startServer,
	})
	subcmd, err := ctx.Parse(os.Args)
	if err != nil {
		log.Fatalln(err)
	}

	// If the subcommand is nil, print the usage and exit
	if subcmd == nil {
		ctx.PrintUsage(os.Stdout)
		os.Exit(1)
	}

	// Apply the optional TOML config before running. Merge skips fields a
	// flag already set, so flags win over the file.
	cli.ApplyFile(config)

	// Run the subcommand
	subcmd.Handler()
}
