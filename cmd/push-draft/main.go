// Command push-draft reconciles a local draft file against the Assessly
// platform. It reads the draft JSON, validates it, runs the ordered save
// plan, and writes the id-resolved draft back so the next push updates
// instead of re-creating.
//
// Usage:
//
//	push-draft -file draft.json [-out resolved.json]
//	push-draft -list
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/assesslyhq/assessly-go/internal/api"
	"github.com/assesslyhq/assessly-go/internal/auth"
	"github.com/assesslyhq/assessly-go/internal/builder"
	"github.com/assesslyhq/assessly-go/internal/config"
	"github.com/assesslyhq/assessly-go/internal/draft"
	"github.com/assesslyhq/assessly-go/internal/logger"
	"github.com/assesslyhq/assessly-go/internal/validator"
)

func main() {
	var (
		file = flag.String("file", "", "path to the draft JSON file")
		out  = flag.String("out", "", "where to write the resolved draft (default: overwrite -file)")
		list = flag.Bool("list", false, "list assessments instead of pushing")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	if cfg.AccessToken == "" {
		log.Fatal().Msg("ASSESSLY_TOKEN is not set")
	}
	if info, err := auth.Inspect(cfg.AccessToken); err != nil {
		log.Warn().Err(err).Msg("Access token is not a readable JWT")
	} else if info.ExpiresWithin(5 * time.Minute) {
		log.Warn().Msg("Access token expires soon; the save plan may fail midway")
	}

	client := api.New(cfg, log)
	ctx := context.Background()

	if *list {
		assessments, err := client.ListAssessments(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("List failed")
		}
		for _, a := range assessments {
			fmt.Printf("%6d  %s\n", a.ID, a.Title)
		}
		return
	}

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	st, err := draft.Load(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load draft")
	}

	for _, w := range st.Warnings() {
		log.Warn().Msg(w)
	}

	engine := builder.New(client, log)
	resolved, err := engine.Save(ctx, st)
	if err != nil {
		var ve *builder.ValidationError
		if errors.As(err, &ve) {
			for field, msg := range ve.Fields {
				log.Error().Str("field", field).Msg(msg)
			}
			log.Fatal().Msg("Draft is invalid; nothing was sent")
		}

		// A later-phase failure keeps every id acquired so far. Persist
		// the partial resolution so a retry does not duplicate entities.
		if werr := writeResolved(*file, *out, resolved); werr != nil {
			log.Error().Err(werr).Msg("Could not persist partial resolution")
		}
		log.Fatal().Err(err).Msg("Save failed; re-run to retry the remaining steps")
	}

	if err := writeResolved(*file, *out, resolved); err != nil {
		log.Fatal().Err(err).Msg("Could not write resolved draft")
	}

	fmt.Printf("assessment %d saved (%d modules, %d marks)\n",
		resolved.Assessment.ID.Num(),
		len(resolved.Assessment.Modules),
		resolved.Assessment.TotalMarks())
}

func writeResolved(file, out string, st draft.State) error {
	target := out
	if target == "" {
		target = file
	}
	return draft.Save(target, st)
}
