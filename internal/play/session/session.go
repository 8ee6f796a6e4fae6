package session

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"bhashakahani/internal/api"
	"bhashakahani/internal/cli/scheme/colours"
	"bhashakahani/internal/play/engine"
	"bhashakahani/internal/play/sequencer"
	"bhashakahani/internal/play/view"

	"github.com/sirupsen/logrus"
)

// runSession plays one story until the user quits or the story completes.
func (p *Player) runSession(story *api.StoryDetail, language string) {
	seq := sequencer.New(p.engine, p.cache)
	coord := sequencer.NewCoordinator(seq, p.cache, p.prefs, p.client)

	started := time.Now()

	seq.OnNodeChange(func(index int, node api.StoryNode) {
		p.reportProgress(story.ID, node.ID, false, started)
		p.renderNode(seq)
	})
	seq.OnComplete(func() {
		st := seq.Status()
		p.reportProgress(story.ID, st.Node.ID, true, started)
		fmt.Println()
		colours.Success.Println("✅ The story is over! 🌟")
		colours.Prompt.Println("😴 Sleep tight! 🌙")
	})

	coord.Bind(story.Slug, func(detail *api.StoryDetail, lang string) {
		fmt.Println()
		colours.Success.Printf("🌏 Now narrating in %s\n", languageName(lang))
		p.renderNode(seq)
	}, func(err error) {
		colours.Error.Printf("❌ Could not reload the story: %v\n", err)
	})

	seq.Open(story, language)

	fmt.Println()
	colours.Title.Printf("📖 %s\n", story.Title)
	if story.Moral != "" {
		colours.Narrator.Printf("💭 %s\n", story.Moral)
	}

	st := seq.Status()
	if st.Total == 0 {
		colours.Warning.Println("⚠️ This story has no narration yet in this language.")
		return
	}
	fmt.Printf("🎧 %d parts | 🌏 %s\n", st.Total, languageName(language))
	fmt.Println("💡 Enter = play/pause, n = next, b = back, g <n> = go to part, l <code> = language, q = quit")

	p.renderNode(seq)
	p.controlLoop(seq, coord)

	seq.Stop()
}

func (p *Player) controlLoop(seq *sequencer.Sequencer, coord *sequencer.Coordinator) {
	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		colours.Prompt.Print("\n🎙  > ")
		input := readLine()
		fields := strings.Fields(input)
		command := ""
		if len(fields) > 0 {
			command = fields[0]
		}

		switch command {
		case "", "p", "play", "pause":
			p.togglePlayback(seq)
		case "n", "next":
			seq.Advance()
		case "b", "back":
			seq.Retreat()
		case "g", "go":
			if len(fields) < 2 {
				colours.Info.Println("ℹ️  Usage: g <part number>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				colours.Error.Println("❌ Not a part number.")
				continue
			}
			if err := seq.JumpTo(n - 1); err != nil {
				colours.Error.Printf("❌ %v\n", err)
			}
		case "l", "lang", "language":
			if len(fields) < 2 || !api.KnownLanguage(fields[1]) {
				colours.Info.Println("ℹ️  Usage: l <en|hi|kn>")
				continue
			}
			coord.SwitchLanguage(p.ctx, fields[1])
		case "q", "quit":
			colours.Warning.Println("👋 Goodbye! 🌙")
			return
		default:
			colours.Info.Println("ℹ️  Enter = play/pause, n/b = move, g <n> = jump, l <code> = language, q = quit")
		}
	}
}

func (p *Player) togglePlayback(seq *sequencer.Sequencer) {
	if p.engine.State() == engine.StatePlaying {
		seq.Pause()
		colours.Warning.Println("⏸️  Paused")
		return
	}
	if err := seq.Play(p.ctx); err != nil {
		colours.Error.Printf("❌ Playback failed: %v\n", err)
		return
	}
	colours.Success.Println("▶️  Playing")
}

// renderNode prints the playback screen for the current node.
func (p *Player) renderNode(seq *sequencer.Sequencer) {
	snap := view.Derive(seq.Status(), p.engine.State())

	fmt.Println()
	colours.Info.Printf("— Part %d of %d (%.0f%%) —\n",
		snap.NodeNumber, snap.TotalNodes, snap.ProgressPercent)
	colours.Narrator.Printf("%s:\n", snap.Character)
	fmt.Println(snap.Text)
	colours.Hint.Printf("[%s]", snap.Hint)
	if !snap.CanPrev {
		colours.Hint.Print(" [first part]")
	}
	if !snap.CanNext {
		colours.Hint.Print(" [last part]")
	}
	fmt.Println()
}

// reportProgress tells the service where the listener is. Best effort; a
// failure only costs resume-on-another-device.
func (p *Player) reportProgress(storyID, nodeID string, completed bool, started time.Time) {
	if p.client.UserID() == "" {
		return
	}
	go func() {
		err := p.client.UpdateProgress(p.ctx, api.ProgressUpdate{
			StoryID:       storyID,
			CurrentNodeID: nodeID,
			IsCompleted:   completed,
			TimeSpentSec:  int(time.Since(started).Seconds()),
		})
		if err != nil {
			logrus.WithError(err).Debug("Progress update failed")
		}
	}()
}

func languageName(code string) string {
	for _, l := range api.Languages {
		if l.Code == code {
			return fmt.Sprintf("%s %s", l.Flag, l.Name)
		}
	}
	return code
}

func readLine() string {
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
