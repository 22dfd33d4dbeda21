package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ebitengine/oto/v3"
	"github.com/wavbird/goape/pkg/ape"
)

// ==========================================
// =============== Messages =================
// ==========================================
// tickMsg is sent periodically to update the progress bar.
type tickMsg time.Time

// tickCmd is a helper function to create a tickMsg.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// controlsMsg is sent to control various things about the music player.
type controlsMsg int

const (
	start controlsMsg = iota
	stop
)

// sendControlsMsg is a helper function to create a controlsMsg.
func sendControlsMsg(msg controlsMsg) tea.Cmd {
	return func() tea.Msg {
		return msg
	}
}

// changeSongMsg is sent to change the song.
type changeSongMsg int

const (
	next changeSongMsg = iota
	prev
)

// sendChangeSongMsg is a helper function to create a changeSongMsg.
func sendChangeSongMsg(msg changeSongMsg) tea.Cmd {
	return func() tea.Msg {
		return msg
	}
}

// ==========================================
// ================ Models ==================
// ==========================================

// model holds the main state of the application.
type model struct {
	// filenames is a list of filenames to play.
	filenames []string
	// currentIndex is the index of the current song playing
	currentIndex int
	// apePlayer plays the current song.
	apePlayer *apePlayer
	// help shows the key bindings.
	help help.Model
	// ctx is the Oto context. There can only be one per process.
	ctx *oto.Context
}

// apePlayer handles playing APE audio files and showing progress.
type apePlayer struct {
	// samples is the decoded PCM audio, interleaved for stereo.
	samples []int32
	// reader feeds the samples to Oto as 16-bit stereo PCM.
	reader *ape.PCMReader
	// player is the Oto player, which does the actual playing of sound.
	player *oto.Player
	// info is the stream metadata from the file header.
	info ape.Info
	// startTime is the time when the song started playing.
	startTime time.Time
	// lastPauseTime is the time when the last pause started.
	lastPauseTime time.Time
	// totalPausedTime is the total time spent paused.
	totalPausedTime time.Duration
	// totalLength is the total length of the song.
	totalLength time.Duration
	// currentSeconds is how far into the song playback is.
	currentSeconds float64
	// bitrate is the compressed bitrate in kbps.
	bitrate int
	// filename is the filename of the song being played.
	filename string
	// progress is the progress bubble model.
	progress progress.Model
	// paused is whether the song is paused.
	paused bool
}

// initialModel creates a new model with the given filenames.
func initialModel(filenames []string) *model {
	// Prepare an Oto context (this will use the default audio device)
	ctx, ready, err := oto.NewContext(
		&oto.NewContextOptions{
			// Typically 44100 or 48000, we could get it from an APE file but
			// the context is created before any file is opened.
			SampleRate: 44100,
			// only 1 or 2 are supported by oto
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
		})
	if err != nil {
		panic("oto.NewContext failed: " + err.Error())
	}
	// Wait for the context to be ready
	<-ready

	m := &model{
		filenames:    filenames,
		currentIndex: 0,
		help:         help.New(),
		ctx:          ctx,
	}
	m.apePlayer = newAPEPlayer(filenames[0], ctx)
	return m
}

// newAPEPlayer creates a new APE player for the given filename.
func newAPEPlayer(filename string, ctx *oto.Context) *apePlayer {
	r, err := ape.Open(filename)
	if err != nil {
		logger.Fatalf("Error opening APE file: %v", err)
	}
	defer r.Close()

	samples, err := r.ReadAll()
	if err != nil {
		logger.Fatalf("Error decoding APE data: %v", err)
	}
	info := r.Info()

	blocks := info.TotalSamples / uint64(info.Channels)
	totalLength := time.Duration(float64(blocks) / float64(info.SampleRate) * float64(time.Second))

	bitrate := 0
	if fi, err := os.Stat(filename); err == nil && totalLength > 0 {
		bitrate = int(float64(fi.Size()*8) / totalLength.Seconds() / 1000)
	}

	prog := progress.New(progress.WithGradient(apeBlue, apeSky))
	prog.ShowPercentage = false
	prog.Width = maxWidth

	reader := ape.NewPCMReader(samples, int(info.Channels), int(info.BitsPerSample))
	player := ctx.NewPlayer(reader)
	return &apePlayer{
		filename:    filename,
		samples:     samples,
		reader:      reader,
		info:        info,
		progress:    prog,
		player:      player,
		bitrate:     bitrate,
		totalLength: totalLength,
	}
}

// getPlayerProgress reports playback progress in [0, 1] and refreshes the
// elapsed seconds counter from the samples actually consumed.
func (p *apePlayer) getPlayerProgress() float64 {
	if len(p.samples) == 0 {
		return 1.0
	}
	played := p.reader.SamplesPlayed()
	p.currentSeconds = float64(played/int(p.info.Channels)) / float64(p.info.SampleRate)
	return float64(played) / float64(len(p.samples))
}

// formatDuration renders a duration as mm:ss.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d - m*time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d", m, s)
}

// ==========================================
// ================= Main ===================
// ==========================================
// startTUI is the main entry point for the TUI.
func startTUI(inputFiles []string) {
	p := tea.NewProgram(initialModel(inputFiles))
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(sendControlsMsg(start))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	// Handle terminal resizing
	case tea.WindowSizeMsg:
		m.apePlayer.progress.Width = msg.Width - padding*2 - 4
		if m.apePlayer.progress.Width > maxWidth {
			m.apePlayer.progress.Width = maxWidth
		}
		m.help.Width = msg.Width
		return m, nil

	// Handle key presses
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, helpKeys.quit):
			if m.apePlayer.player.IsPlaying() {
				m.apePlayer.player.Close()
			}
			return m, tea.Quit
		case key.Matches(msg, helpKeys.togglePlay):
			var cmd tea.Cmd
			if m.apePlayer.player.IsPlaying() {
				cmd = sendControlsMsg(stop)
			} else if m.apePlayer.player != nil {
				cmd = sendControlsMsg(start)
			}
			return m, cmd
		case key.Matches(msg, helpKeys.nextSong):
			return m, sendChangeSongMsg(next)
		case key.Matches(msg, helpKeys.previousSong):
			return m, sendChangeSongMsg(prev)
		}
	// Handle requests to change controls (play, pause, etc.)
	case controlsMsg:
		switch msg {
		case start:
			if !m.apePlayer.player.IsPlaying() {
				m.apePlayer.player.Play()
				m.apePlayer.paused = false

				// Account for time spent paused, if needed
				if m.apePlayer.startTime.IsZero() {
					m.apePlayer.startTime = time.Now()
				} else {
					m.apePlayer.totalPausedTime += time.Since(m.apePlayer.lastPauseTime)
					m.apePlayer.lastPauseTime = time.Time{} // Reset last pause time
				}
				// Now that we are definitely playing, start the progress bubble
				return m, tickCmd()
			}
		case stop:
			m.apePlayer.player.Pause()
			m.apePlayer.lastPauseTime = time.Now()
			m.apePlayer.paused = true
		}
	// Handle requests to change song (prev, next, etc.)
	case changeSongMsg:
		switch msg {
		case next:
			m = changeSong(m, 1)
			return m, sendControlsMsg(start)
		case prev:
			m = changeSong(m, -1)
			return m, sendControlsMsg(start)
		}
	// Update the progress. This is called periodically, so also handle songs that are over.
	case tickMsg:
		// Check if the song is over, ignoring progress bubble status in case the song ended before it got to 100%.
		if !m.apePlayer.player.IsPlaying() && !m.apePlayer.paused {
			// Just go to the next song.
			return m, sendChangeSongMsg(next)
		}
		// If we're still playing, update accordingly
		if m.apePlayer.player.IsPlaying() {
			cmd := m.apePlayer.progress.SetPercent(m.apePlayer.getPlayerProgress())
			// Set new progress bar percent and keep ticking
			return m, tea.Batch(cmd, tickCmd())
		} else if m.apePlayer.progress.Percent() >= 1.0 {
			// Progress is at 100%, so song must be over.
			return m, tea.Batch(sendChangeSongMsg(next))
		}

	case progress.FrameMsg:
		progressModel, cmd := m.apePlayer.progress.Update(msg)
		m.apePlayer.progress = progressModel.(progress.Model)
		return m, cmd

	}
	return m, nil
}

// changeSong moves through the filenames list by delta, wrapping at both ends.
func changeSong(m model, delta int) model {
	m.apePlayer.player.Close()

	nextIndex := (m.currentIndex + delta + len(m.filenames)) % len(m.filenames)
	nextFile := m.filenames[nextIndex]

	m.apePlayer = newAPEPlayer(nextFile, m.ctx)
	m.currentIndex = nextIndex

	return m
}

// ==========================================
// ================= View ===================
// ==========================================
// View renders the current state of the application.
func (m model) View() string {
	var list strings.Builder
	list.WriteString(listTitleStyle.Render("goape") + "\n")
	for i, name := range m.filenames {
		marker := "  "
		if i == m.currentIndex {
			marker = "> "
		}
		list.WriteString(marker + name + "\n")
	}

	elapsed := formatDuration(time.Duration(m.apePlayer.currentSeconds * float64(time.Second)))
	status := fmt.Sprintf("%s / %s", elapsed, formatDuration(m.apePlayer.totalLength))

	pad := strings.Repeat(" ", 2)
	return fmt.Sprintf(
		"%s\n%s%s  %s\n\n%s%s\n",
		listStyle.Render(list.String()),
		pad, m.apePlayer.progress.View(), status,
		pad, m.help.View(helpKeys),
	)
}
