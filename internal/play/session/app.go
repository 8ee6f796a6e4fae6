package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bhashakahani/internal/api"
	"bhashakahani/internal/cli/scheme/colours"
	"bhashakahani/internal/play/audiocache"
	"bhashakahani/internal/play/engine"
	"bhashakahani/internal/prefs"
	"bhashakahani/internal/speech"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Player is the application: the API client, the playback pipeline and the
// cobra command handlers.
type Player struct {
	client *api.Client
	prefs  *prefs.Store
	engine *engine.Engine
	cache  *audiocache.Cache

	authed bool
	ctx    context.Context
	Cancel context.CancelFunc
}

func NewPlayer() *Player {
	ctx, cancel := context.WithCancel(context.Background())

	synth, err := speech.NewSynthesizer(ctx, viper.GetString("tts.type"))
	if err != nil {
		logrus.WithError(err).Warn("Speech backend unavailable, narration falls back to silence")
		synth = speech.NewMock()
	}

	timeout := time.Duration(viper.GetInt("api.timeout_sec")) * time.Second
	client := api.NewClient(viper.GetString("api.base_url"), timeout)

	return &Player{
		client: client,
		prefs:  prefs.NewStore(),
		engine: engine.New(engine.NewBeepPlayer(timeout), synth,
			engine.WithSpeechTuning(viper.GetFloat64("tts.speed"), viper.GetFloat64("tts.volume"))),
		cache:  audiocache.New(client),
		ctx:    ctx,
		Cancel: cancel,
	}
}

// Engine exposes the playback engine for shutdown handling.
func (p *Player) Engine() *engine.Engine {
	return p.engine
}

// ensureAuth bootstraps the anonymous session once. Browsing still works if
// it fails; progress reporting is skipped without a user id.
func (p *Player) ensureAuth() {
	if p.authed {
		return
	}
	if err := p.client.AuthenticateAnonymous(p.ctx); err != nil {
		logrus.WithError(err).Warn("Anonymous sign-in failed")
		return
	}
	p.authed = true
}

func (p *Player) ShowWelcome() {
	fmt.Println()
	colours.Title.Println("🪔 Welcome to BhashaKahani! 🪔")
	fmt.Println()
	colours.Info.Println("📚 Available commands:")
	fmt.Println("  • bhashakahani list       - Browse the folktale catalog")
	fmt.Println("  • bhashakahani read       - Listen to a story")
	fmt.Println("  • bhashakahani languages  - Show narration languages")
	fmt.Println("  • bhashakahani settings   - Configure voice settings")
	fmt.Println()
	colours.Prompt.Println("✨ Ready for a folktale in your language? ✨")
}

func (p *Player) ListStories(cmd *cobra.Command, args []string) {
	language, _ := cmd.Flags().GetString("language")
	ageRange, _ := cmd.Flags().GetString("age")
	search, _ := cmd.Flags().GetString("search")
	region, _ := cmd.Flags().GetString("region")
	page, _ := cmd.Flags().GetInt("page")

	if language == "" {
		language = p.prefs.Language()
	}

	p.ensureAuth()

	list, err := p.client.ListStories(p.ctx, api.StoryFilters{
		Language: language,
		AgeRange: ageRange,
		Region:   region,
		Search:   search,
		Page:     page,
	})
	if err != nil {
		colours.Error.Printf("❌ Could not load stories: %v\n", err)
		return
	}

	fmt.Println()
	colours.Title.Println("📚 Folktales 📚")
	fmt.Println()

	for i, story := range list.Data {
		fmt.Printf("  %d. ", i+1)
		colours.Title.Printf("%s", story.Title)
		if story.Region != "" {
			fmt.Printf(" · ")
			colours.Narrator.Printf("%s", story.Region)
		}
		fmt.Printf("\n     🎯 Ages: %s | ⏱️ %d min | 🎭 %d characters\n",
			story.AgeRange, story.DurationMin, story.CharacterCount)
		fmt.Printf("     💡 %s\n", story.Description)
		colours.Info.Printf("     Slug: %s\n", story.Slug)
		fmt.Println()
	}

	if len(list.Data) == 0 {
		colours.Warning.Println("🔍 No stories found matching your criteria.")
		return
	}
	colours.Success.Printf("✨ Page %d of %d — %d stories in all ✨\n",
		list.Pagination.Page, list.Pagination.TotalPages, list.Pagination.Total)
}

func (p *Player) ReadStory(cmd *cobra.Command, args []string) {
	language, _ := cmd.Flags().GetString("language")
	if language == "" {
		language = p.prefs.Language()
	}

	p.ensureAuth()

	slug := ""
	if len(args) > 0 {
		slug = args[0]
	} else {
		slug = p.pickStory(language)
		if slug == "" {
			return
		}
	}

	story, err := p.client.GetStory(p.ctx, slug, language)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			colours.Error.Printf("❌ Story '%s' was not found.\n", slug)
			colours.Info.Println("💡 Run 'bhashakahani list' to browse available stories.")
			return
		}
		colours.Error.Printf("❌ Could not load the story: %v\n", err)
		colours.Info.Println("💡 Check your connection and try again.")
		return
	}

	p.runSession(story, language)
}

// pickStory lists the catalog and asks for a number.
func (p *Player) pickStory(language string) string {
	list, err := p.client.ListStories(p.ctx, api.StoryFilters{Language: language})
	if err != nil {
		colours.Error.Printf("❌ Could not load stories: %v\n", err)
		return ""
	}
	if len(list.Data) == 0 {
		colours.Error.Println("❌ No stories available!")
		return ""
	}

	fmt.Println()
	colours.Title.Println("📚 Choose Your Story! 📚")
	fmt.Println()
	for i, story := range list.Data {
		fmt.Printf("%d. ", i+1)
		colours.Title.Printf("%s", story.Title)
		fmt.Printf(" (%d min, ages %s)\n", story.DurationMin, story.AgeRange)
	}

	fmt.Println()
	colours.Prompt.Print("🌟 Enter the number of your chosen story (or 'q' to quit): ")

	input := readLine()
	if input == "q" || input == "quit" {
		colours.Warning.Println("👋 Maybe next time! 🌙")
		return ""
	}

	choice, err := strconv.Atoi(input)
	if err != nil || choice < 1 || choice > len(list.Data) {
		colours.Error.Println("❌ Invalid selection! Please try again.")
		return ""
	}
	return list.Data[choice-1].Slug
}

func (p *Player) ShowLanguages(cmd *cobra.Command, args []string) {
	fmt.Println()
	colours.Title.Println("🌏 Narration Languages 🌏")
	fmt.Println()

	current := p.prefs.Language()
	for _, lang := range api.Languages {
		marker := "  "
		if lang.Code == current {
			marker = "▶ "
		}
		fmt.Printf("%s%s ", marker, lang.Flag)
		colours.Language.Printf("%-4s", lang.Code)
		fmt.Printf(" %s\n", lang.Name)
	}

	fmt.Println()
	colours.Info.Println("💡 Switch during playback with 'l <code>', or set playback.language in the config file.")
}

func (p *Player) ConfigureSettings(cmd *cobra.Command, args []string) {
	fmt.Println()
	colours.Title.Println("⚙️ Settings ⚙️")
	fmt.Println()

	colours.Prompt.Println("🎤 Voice:")
	fmt.Printf("  • Speech backend: %s\n", viper.GetString("tts.type"))
	fmt.Printf("  • Speed: %.1fx | Volume: %.0f%%\n",
		viper.GetFloat64("tts.speed"), viper.GetFloat64("tts.volume")*100)
	fmt.Println()

	colours.Prompt.Println("🌏 Playback:")
	fmt.Printf("  • Language: %s\n", p.prefs.Language())
	fmt.Printf("  • Story service: %s\n", viper.GetString("api.base_url"))
	fmt.Println()

	backends := speech.AvailableBackends()
	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.String()
	}
	colours.Info.Printf("💡 Speech backends available here: %s\n", strings.Join(names, ", "))
}
