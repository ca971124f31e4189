// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot and REPL ask mode for relay.
//
// Drives the same streaming controller the TUI uses. Output handling
// follows the terminal: on a TTY the response is collected and rendered
// as markdown at the end; piped output streams plain text as it arrives.
//
//	relay ask "What is a slice header?"
//	cat error.log | relay ask "Explain this error"
//	relay ask            # interactive REPL with input history
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/storage"
	"github.com/jeranaias/relay-tui/internal/stream"
)

// MaxFileSize is the maximum file size included with --file (50KB).
const MaxFileSize = 50 * 1024

// pollInterval is how often the plain-text path drains new streamed
// content from the bridge.
const pollInterval = 30 * time.Millisecond

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var markdownRenderer *glamour.TermRenderer

func init() {
	width := DefaultTerminalWidth
	if w := TerminalWidth(); w < width {
		width = w
	}
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown for terminal display, falling back to
// the raw text when rendering is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// RUNTIME
// =============================================================================

// askRuntime bundles the streaming pipeline for ask mode.
type askRuntime struct {
	cfg    *config.Config
	store  *storage.ConversationStore
	ctrl   *stream.Controller
	bridge *stream.Bridge

	events  chan stream.Event
	unsub   func()
	quiet   bool
	verbose bool
}

func newAskRuntime(args Args) (*askRuntime, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}
	logger := newLogger(args)

	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	session := stream.NewSession()
	bridge := stream.NewBridge(session)
	ctrl := stream.NewController(client, store, session, bridge, stream.Config{
		TitleModel:            cfg.Title.Model,
		TitleFallbackMaxRunes: cfg.Title.FallbackMaxRunes,
		AssistantSampleRunes:  cfg.Title.AssistantSampleRunes,
	}, logger)

	modelID := args.Model
	if modelID == "" {
		modelID = cfg.API.Model
	}
	ctrl.SetModel(modelID)
	ctrl.SetSystemPrompt(cfg.SystemPrompt())

	conv, err := store.Create(modelID)
	if err != nil {
		store.Close()
		return nil, err
	}
	ctrl.SetConversation(conv)

	r := &askRuntime{
		cfg:    cfg,
		store:  store,
		ctrl:   ctrl,
		bridge: bridge,
		events:  make(chan stream.Event, 16),
		quiet:   args.Quiet,
		verbose: args.Verbose,
	}
	r.unsub = bridge.Subscribe(func(ev stream.Event) {
		select {
		case r.events <- ev:
		default:
		}
	})
	return r, nil
}

func (r *askRuntime) Close() error {
	r.unsub()
	return r.store.Close()
}

// newConversation rebinds the controller to a fresh conversation.
func (r *askRuntime) newConversation() error {
	conv, err := r.store.Create(r.ctrl.ModelID())
	if err != nil {
		return err
	}
	r.ctrl.SetConversation(conv)
	return nil
}

// =============================================================================
// ASK HANDLER
// =============================================================================

// HandleAskCommand handles the "ask" command. With a question it runs a
// single exchange and exits; without one it drops into the REPL (TTY) or
// reads the question from piped stdin.
func HandleAskCommand(args Args) error {
	question := strings.TrimSpace(args.Query)

	// Piped stdin becomes the question, or context appended to it.
	if stdin := readPipedStdin(); stdin != "" {
		if question == "" {
			question = stdin
		} else {
			question = question + "\n\n" + stdin
		}
	}

	if args.File != "" {
		fileContent, err := readFileForContext(args.File)
		if err != nil {
			return err
		}
		question = question + "\n" + fileContent
		if !args.Quiet {
			fmt.Fprintf(os.Stderr, "%s Including file: %s\n",
				infoStyle.Render("[+]"), args.File)
		}
	}

	r, err := newAskRuntime(args)
	if err != nil {
		return err
	}
	defer r.Close()

	// Ctrl+C during a stream cancels the exchange instead of killing
	// the process; the REPL prompt comes back with history intact.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			r.ctrl.Cancel()
		}
	}()

	if question != "" {
		return r.runExchange(question)
	}

	if !IsTTY() {
		return fmt.Errorf("no question provided. Usage: relay ask \"your question\"")
	}
	return r.runREPL()
}

// readPipedStdin returns trimmed stdin content when stdin is a pipe,
// empty otherwise.
func readPipedStdin() string {
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return ""
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// readFileForContext reads a file and formats it for inclusion in a
// prompt. Files larger than MaxFileSize are rejected.
func readFileForContext(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d bytes)", info.Size(), MaxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n--- File: %s ---\n", path)
	b.Write(content)
	b.WriteString("\n--- End of file ---\n")
	return b.String(), nil
}

// =============================================================================
// EXCHANGE
// =============================================================================

// runExchange submits one question and blocks until the stream reaches a
// terminal state, printing the response as it goes.
func (r *askRuntime) runExchange(question string) error {
	r.ctrl.Submit(question)
	if r.ctrl.State() == stream.StateIdle && r.ctrl.LastError() == "" && len(r.events) == 0 {
		// Submit refused (no model, blank text). Nothing in flight.
		return errors.New("nothing submitted")
	}

	useMarkdown := IsStdoutTTY()
	printed := 0
	var final *stream.Snapshot

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	if !r.quiet && useMarkdown {
		fmt.Println()
	}

loop:
	for {
		select {
		case ev := <-r.events:
			if done := r.handleEvent(ev, &final); done {
				break loop
			}

		case <-ticker.C:
			if !useMarkdown {
				printed += r.printTail(printed)
			}
			if r.ctrl.State() == stream.StateIdle {
				// Terminal state reached. A final event may still be
				// queued; drain it before concluding.
				select {
				case ev := <-r.events:
					if done := r.handleEvent(ev, &final); done {
						break loop
					}
				default:
					break loop
				}
			}
		}
	}

	if errText := r.ctrl.LastError(); errText != "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("[Error]"), errText)
		return fmt.Errorf("request failed: %s", errText)
	}

	if final == nil {
		// Cancelled mid-stream or the stream ended empty.
		if !useMarkdown && printed > 0 {
			fmt.Println()
		}
		if !r.quiet {
			fmt.Fprintln(os.Stderr, warningStyle.Render("[Cancelled]"))
		}
		return nil
	}

	if useMarkdown {
		if r.verbose && final.Reasoning != "" {
			fmt.Println(reasoningStyle.Render(final.Reasoning))
			fmt.Println()
		}
		fmt.Print(renderMarkdown(final.Content))
	} else {
		if len(final.Content) > printed {
			fmt.Print(final.Content[printed:])
		}
		fmt.Println()
	}

	printSources(final)
	return nil
}

// handleEvent processes a bridge event; it reports true on terminal
// events and captures the final snapshot from EventEnd.
func (r *askRuntime) handleEvent(ev stream.Event, final **stream.Snapshot) bool {
	switch ev.Kind {
	case stream.EventEnd:
		*final = ev.Snapshot
		return true
	case stream.EventReset:
		return true
	default:
		return false
	}
}

// printTail writes streamed content that arrived since the last poll and
// returns the number of bytes written.
func (r *askRuntime) printTail(printed int) int {
	snap := r.bridge.Peek()
	if len(snap.Content) <= printed {
		return 0
	}
	fmt.Print(snap.Content[printed:])
	return len(snap.Content) - printed
}

// printSources lists citations and images gathered during the stream.
func printSources(snap *stream.Snapshot) {
	if len(snap.Citations) > 0 {
		fmt.Println()
		fmt.Println(citationStyle.Render("Sources:"))
		for i, c := range snap.Citations {
			if c.Title != "" {
				fmt.Printf("  [%d] %s - %s\n", i+1, c.Title, c.URL)
			} else {
				fmt.Printf("  [%d] %s\n", i+1, c.URL)
			}
		}
	}
	if len(snap.Images) > 0 {
		fmt.Println()
		fmt.Println(citationStyle.Render("Images:"))
		for _, img := range snap.Images {
			fmt.Printf("  %s\n", img.URL)
		}
	}
}

// =============================================================================
// REPL
// =============================================================================

// runREPL is the interactive ask loop: liner-backed input with history,
// slash commands, one exchange per line.
func (r *askRuntime) runREPL() error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	historyFile := ""
	if dir, err := config.Dir(); err == nil {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr == nil {
			historyFile = filepath.Join(dir, "ask_history")
			if f, err := os.Open(historyFile); err == nil {
				line.ReadHistory(f)
				f.Close()
			}
		}
	}
	defer func() {
		if historyFile == "" {
			return
		}
		if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	if !r.quiet {
		fmt.Printf("relay %s (model %s)\n", Version, r.ctrl.ModelID())
		fmt.Println(infoStyle.Render("Type /help for commands, Ctrl+D to exit."))
		fmt.Println()
	}

	for {
		input, err := line.Prompt(promptStyle.Render("relay> "))
		if err != nil {
			// Ctrl+C at the prompt or EOF: leave quietly.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			cont, err := r.handleSlashCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !cont {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if err := r.runExchange(input); err != nil {
			// Already reported to stderr; keep the REPL alive.
			continue
		}
		fmt.Println()
	}
}

// handleSlashCommand executes a REPL slash command. The second return is
// false when the REPL should exit.
func (r *askRuntime) handleSlashCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/help":
		fmt.Println("  /new           start a new conversation")
		fmt.Println("  /model [name]  show or switch the model")
		fmt.Println("  /quit          exit")
		return true, nil

	case "/new":
		if err := r.newConversation(); err != nil {
			return true, err
		}
		if !r.quiet {
			fmt.Println(infoStyle.Render("Started a new conversation."))
		}
		return true, nil

	case "/model":
		if len(fields) < 2 {
			fmt.Printf("Current model: %s\n", r.ctrl.ModelID())
			return true, nil
		}
		r.ctrl.SetModel(fields[1])
		// Model switches start clean; mixing models mid-history is
		// more confusing than it is useful.
		if err := r.newConversation(); err != nil {
			return true, err
		}
		if !r.quiet {
			fmt.Printf("Switched to %s.\n", fields[1])
		}
		return true, nil

	case "/quit", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
}
