// jobmate-feed-service
//
// Personalised job feed for the Telegram bot: fetches Adzuna listings,
// filters, deduplicates, scores and renders them as cards for a user's
// profile, and sends periodic digests of unseen cards.
//
// Publishes EVENT_SEARCH_COMPLETED, EVENT_DIGEST_READY and EVENT_CARD_MARKED
// to Redis for the bot and Gateway to forward.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:          "feed-service",
	Short:        "Personalised job feed service",
	Long:         "feed-service ranks Adzuna job listings against user profiles and serves them over HTTP, with scheduled digests.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	setupLogger(slog.LevelInfo)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger installs a JSON slog handler on stderr as the default logger.
func setupLogger(level slog.Level) {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h).With("service", "feed-service"))
}
