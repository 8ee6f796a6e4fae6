package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bhashakahani/internal/cli/scheme/colours"
	"bhashakahani/internal/config"
	"bhashakahani/internal/play/session"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {

	config.SetDefaults()

	app := session.NewPlayer()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Cancel()
		app.Engine().Stop()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Sweet dreams! 🌙"))
		os.Exit(0)
	}()

	rootCmd := &cobra.Command{
		Use:   "bhashakahani",
		Short: "🪔 Folktales in your language",
		Long: `
┌──────────────────────────────────────┐
│  🪔 Welcome to BhashaKahani! 📚     │
│  Folktales of India, narrated        │
│  in English, हिन्दी and ಕನ್ನಡ 🌏      │
└──────────────────────────────────────┘

BhashaKahani streams narrated folktales from the story service and reads
them aloud on this machine when narration audio is not ready yet.
		`,
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "📋 Browse the folktale catalog",
		Long:  "Display stories available from the story service",
		Run:   app.ListStories,
	}

	// Read command
	readCmd := &cobra.Command{
		Use:   "read [story-slug]",
		Short: "📖 Listen to a story",
		Long:  "Play a story part by part, with narration audio or spoken text",
		Run:   app.ReadStory,
	}

	// Languages command
	languagesCmd := &cobra.Command{
		Use:   "languages",
		Short: "🌏 Show narration languages",
		Long:  "List the languages stories can be narrated in",
		Run:   app.ShowLanguages,
	}

	// Settings command
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Show voice and playback settings",
		Long:  "Display the configured speech backend, speed, volume and language",
		Run:   app.ConfigureSettings,
	}

	// Add flags
	listCmd.Flags().StringP("language", "l", "", "Filter by narration language")
	listCmd.Flags().StringP("age", "a", "", "Filter by age range, e.g. 4-6")
	listCmd.Flags().StringP("search", "s", "", "Search titles and descriptions")
	listCmd.Flags().StringP("region", "r", "", "Filter by region, e.g. Karnataka")
	listCmd.Flags().IntP("page", "p", 0, "Catalog page")
	readCmd.Flags().StringP("language", "l", "", "Narration language for this story")

	rootCmd.AddCommand(listCmd, readCmd, languagesCmd, settingsCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

// Configuration management with Viper
func init() {
	viper.SetConfigName("bhashakahani")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.bhashakahani")
	viper.AddConfigPath(".")

	viper.ReadInConfig()
}
