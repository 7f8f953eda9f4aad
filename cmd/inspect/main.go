// Command inspect dumps the contents of a summary cache snapshot: every
// stored entry with its age and TTL classification. Useful for checking
// what the cache holds without starting the assistant.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andluizsouza/ai-agent-personalization/internal/vectorindex"
)

func main() {
	var (
		indexPath = flag.String("index", "data/faiss_index", "path to the snapshot directory")
		ttlDays   = flag.Int("ttl-days", 30, "TTL used to classify entries as valid or stale")
		verbose   = flag.Bool("verbose", false, "print the full content of each entry")
	)
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	idx, err := vectorindex.Load(*indexPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *indexPath).Msg("failed to load snapshot")
	}

	docs := idx.Documents()
	fmt.Printf("Snapshot: %s\n", *indexPath)
	fmt.Printf("Entries: %d, dimension: %d\n\n", len(docs), idx.Dimension())

	now := time.Now()
	var valid, stale, system int
	for i, doc := range docs {
		kind := doc.Metadata["entry_kind"]
		if kind != "content" {
			system++
			fmt.Printf("%3d. [%s] %s\n", i+1, kind, doc.Text)
			continue
		}

		state := "no timestamp"
		created, err := time.Parse(time.RFC3339Nano, doc.Metadata["created_at"])
		if err == nil {
			ageDays := int(now.Sub(created).Hours() / 24)
			if ageDays <= *ttlDays {
				state = fmt.Sprintf("valid, %dd old", ageDays)
				valid++
			} else {
				state = fmt.Sprintf("stale, %dd old", ageDays)
				stale++
			}
		} else {
			stale++
		}

		fmt.Printf("%3d. %s (%s) %s\n", i+1, doc.Metadata["subject_name"], state, doc.Metadata["reference_url"])
		if *verbose {
			fmt.Printf("     category: %s\n     %s\n", doc.Metadata["category"], doc.Text)
		}
	}

	fmt.Printf("\nvalid: %d, stale: %d, system: %d (ttl %dd)\n", valid, stale, system, *ttlDays)
}
