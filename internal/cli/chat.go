// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat for plain terminals and pipes.
//
// The REPL drives the same session controller as the full-screen UI. It
// submits one question at a time and prints the reasoning steps and the
// answer as snapshots arrive, then prompts again.

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/regchat-tui/internal/config"
	"github.com/jeranaias/regchat-tui/internal/export"
	"github.com/jeranaias/regchat-tui/internal/model"
	"github.com/jeranaias/regchat-tui/internal/session"
	"github.com/jeranaias/regchat-tui/internal/ui/styles"
	"github.com/jeranaias/regchat-tui/internal/util"
)

const (
	historyFileName = "chat_history"
	maxHistoryLines = 500

	// connectWait bounds the wait for the first health probe.
	connectWait = 5 * time.Second
)

// slashCommands lists the REPL commands for completion and /help.
var slashCommands = [][2]string{
	{"/new", "nouvelle session"},
	{"/team NOM", "change d'équipe (global, acaps, ammc)"},
	{"/sessions", "liste les sessions"},
	{"/load ID", "reprend une session"},
	{"/export [pdf|md|json]", "exporte la session courante"},
	{"/reasoning", "affiche ou masque le raisonnement"},
	{"/help", "cette aide"},
	{"/quit", "quitte"},
}

type chatOptions struct {
	sessionID string
	noHistory bool
}

func newChatCmd(a *app) *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Conversation en mode ligne",
		Long: "Conversation en mode ligne, avec historique des saisies et commandes\n" +
			"/new, /team, /sessions, /load, /export, /reasoning, /quit.\n" +
			"Lit une question par ligne quand l'entrée standard n'est pas un terminal.",
		Args:        noArgs,
		Annotations: map[string]string{annotationInteractive: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runChat(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "resume this session")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "do not read or write the input history file")
	return cmd
}

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader abstracts liner so that pipes and tests read plain lines.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// scannerReader reads one line per prompt without echoing the prompt.
type scannerReader struct {
	sc *bufio.Scanner
}

func newScannerReader(r io.Reader) *scannerReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 4096), maxStdinQuestion)
	return &scannerReader{sc: sc}
}

func (r *scannerReader) Prompt(string) (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scannerReader) AppendHistory(string) {}
func (r *scannerReader) Close() error         { return nil }

// linerReader is the interactive reader with history and completion.
type linerReader struct {
	state   *liner.State
	history string
}

func newLinerReader(historyPath string) *linerReader {
	st := liner.NewLiner()
	st.SetCtrlCAborts(true)
	st.SetCompleter(func(line string) []string {
		if !strings.HasPrefix(line, "/") {
			return nil
		}
		var out []string
		for _, c := range slashCommands {
			name := strings.Fields(c[0])[0]
			if strings.HasPrefix(name, line) {
				out = append(out, name)
			}
		}
		return out
	})

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			if _, err := st.ReadHistory(f); err != nil {
				log.Debug().Err(err).Str("path", historyPath).Msg("reading chat history failed")
			}
			f.Close()
		}
	}
	return &linerReader{state: st, history: historyPath}
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	line, err := r.state.Prompt(prompt)
	if err == liner.ErrPromptAborted {
		return "", io.EOF
	}
	return line, err
}

func (r *linerReader) AppendHistory(line string) {
	r.state.AppendHistory(line)
}

func (r *linerReader) Close() error {
	if r.history != "" {
		f, err := os.OpenFile(r.history, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err == nil {
			if _, err := r.state.WriteHistory(f); err != nil {
				log.Debug().Err(err).Str("path", r.history).Msg("writing chat history failed")
			}
			f.Close()
		}
	}
	return r.state.Close()
}

// historyPath returns the input history file in the config directory.
func historyPath() string {
	if err := config.EnsureConfigDir(); err != nil {
		return ""
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, historyFileName)
}

// =============================================================================
// REPL
// =============================================================================

// repl is one line-mode chat.
type repl struct {
	a       *app
	cmd     *cobra.Command
	ctrl    *session.Controller
	in      lineReader
	out     io.Writer
	printer *replPrinter
	updates chan struct{}
	// opTimeout bounds session operations (load, create)
	opTimeout time.Duration
}

func (a *app) runChat(cmd *cobra.Command, opts chatOptions) error {
	scfg, err := a.sessionConfig()
	if err != nil {
		return err
	}
	// Answers are printed once; there is no placeholder to keep on screen.
	scfg.FinalizeGrace = 0

	client := a.newClient()
	ctrl := session.NewController(session.NewClientTransport(client), scfg)

	var in lineReader
	interactive := IsTTY() && IsStdoutTTY()
	if interactive {
		hist := ""
		if !opts.noHistory {
			hist = historyPath()
		}
		in = newLinerReader(hist)
	} else {
		in = newScannerReader(cmd.InOrStdin())
	}

	r := newREPL(a, cmd, ctrl, in)
	defer in.Close()
	return r.run(opts.sessionID, interactive)
}

func newREPL(a *app, cmd *cobra.Command, ctrl *session.Controller, in lineReader) *repl {
	out := cmd.OutOrStdout()
	md := newAnswerRenderer(a.cfg.UI.RenderMarkdown, a.cfg.UI.WordWrap)
	return &repl{
		a:         a,
		cmd:       cmd,
		ctrl:      ctrl,
		in:        in,
		out:       out,
		printer:   newReplPrinter(out, md, a.cfg.UI.ShowReasoning),
		updates:   make(chan struct{}, 1),
		opTimeout: a.cfg.RequestTimeout() + 5*time.Second,
	}
}

// run starts the controller and reads questions until EOF or /quit.
func (r *repl) run(resume string, banner bool) error {
	unsubscribe := r.ctrl.Subscribe(func(session.State) {
		// Runs on the controller loop: signal only.
		select {
		case r.updates <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()
	r.ctrl.Start()
	defer r.ctrl.Close()

	if banner {
		fmt.Fprintln(r.out, TitleStyle.Render("regchat")+" "+DimStyle.Render("/help pour l'aide, /quit pour quitter"))
	}

	r.waitFor(connectWait, func(s session.State) bool { return s.Connected })
	r.printer.render(r.ctrl.Snapshot())
	if r.ctrl.Snapshot().Connected {
		fmt.Fprintln(r.out, styles.RenderStatus(true, "Connecté au serveur"))
	} else {
		fmt.Fprintln(r.out, styles.RenderStatus(false, "Serveur injoignable, nouvelle tentative en arrière-plan."))
	}

	if resume != "" {
		r.load(resume)
	}

	for {
		line, err := r.in.Prompt(r.prompt())
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.in.AppendHistory(line)

		if strings.HasPrefix(line, "/") {
			if quit := r.command(line); quit {
				return nil
			}
			continue
		}
		r.ask(line)
	}
}

// prompt shows the selected team.
func (r *repl) prompt() string {
	return "[" + r.ctrl.Snapshot().Team.ShortLabel() + "] > "
}

// ask submits a question and prints everything up to the end of the turn.
func (r *repl) ask(question string) {
	before := r.ctrl.Snapshot()
	baseTurns := before.TurnCount()
	baseNotice := lastNoticeSeq(before)

	r.printer.beginTurn()
	r.ctrl.Submit(question)

	r.waitFor(0, func(s session.State) bool {
		if s.TurnCount() > baseTurns {
			return !s.Phase.InFlight()
		}
		// Rejected questions leave a warning and no turn.
		return lastNoticeSeq(s) > baseNotice
	})
	r.printer.render(r.ctrl.Snapshot())
}

// waitFor prints snapshots until done holds, the timeout elapses (zero
// means none), the controller stops or the user presses Ctrl+C.
func (r *repl) waitFor(timeout time.Duration, done func(session.State) bool) bool {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		s := r.ctrl.Snapshot()
		r.printer.render(s)
		if done(s) {
			return true
		}
		select {
		case <-r.updates:
		case <-r.ctrl.Done():
			return false
		case <-ctx.Done():
			if timeout == 0 || ctx.Err() == context.Canceled {
				fmt.Fprintln(r.out, DimStyle.Render("(interrompu, la réponse s'affichera à la prochaine commande)"))
			}
			return false
		}
	}
}

// command runs a slash command. It returns true on /quit.
func (r *repl) command(line string) bool {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		return true

	case "/help", "/?":
		for _, c := range slashCommands {
			fmt.Fprintf(r.out, "  %s %s\n", util.PadWidth(c[0], 22), DimStyle.Render(c[1]))
		}

	case "/new":
		r.ctrl.NewSession()
		r.waitFor(r.opTimeout, func(s session.State) bool { return !s.Creating() })
		r.printer.reset(r.ctrl.Snapshot())
		fmt.Fprintln(r.out, DimStyle.Render("Nouvelle session "+r.ctrl.Snapshot().SessionID))

	case "/team":
		if len(args) != 1 {
			fmt.Fprintln(r.out, styles.RenderWarning("usage : /team global|acaps|ammc"))
			return false
		}
		team, err := model.ParseTeam(args[0])
		if err != nil {
			fmt.Fprintln(r.out, styles.RenderWarning(err.Error()))
			return false
		}
		r.ctrl.SelectTeam(team)
		r.waitFor(r.opTimeout, func(s session.State) bool { return s.Team == team })
		fmt.Fprintln(r.out, DimStyle.Render("Équipe : "+team.Label()))

	case "/sessions":
		r.listSessions()

	case "/load":
		if len(args) != 1 {
			fmt.Fprintln(r.out, styles.RenderWarning("usage : /load ID"))
			return false
		}
		r.load(args[0])

	case "/export":
		r.exportCurrent(args)

	case "/reasoning":
		r.printer.showReasoning = !r.printer.showReasoning
		state := "masqué"
		if r.printer.showReasoning {
			state = "affiché"
		}
		fmt.Fprintln(r.out, DimStyle.Render("Raisonnement "+state))

	default:
		fmt.Fprintln(r.out, styles.RenderWarning("commande inconnue "+name+" (/help)"))
	}
	return false
}

// load switches to a stored session and prints its transcript.
func (r *repl) load(id string) {
	baseNotice := lastNoticeSeq(r.ctrl.Snapshot())
	r.ctrl.LoadSession(id)
	ok := r.waitFor(r.opTimeout, func(s session.State) bool {
		return s.SessionID == id || lastNoticeSeq(s) > baseNotice
	})
	s := r.ctrl.Snapshot()
	if !ok || s.SessionID != id {
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", TitleStyle.Render("Session"), id)
	writeTranscript(r.out, s.Messages, r.printer.md, r.printer.showReasoning)
	r.printer.reset(s)
}

func (r *repl) listSessions() {
	ctx, cancel := context.WithTimeout(r.cmd.Context(), r.opTimeout)
	defer cancel()
	sessions, err := r.a.newClient().ListSessions(ctx)
	if err != nil {
		fmt.Fprintln(r.out, styles.RenderError(err.Error()))
		return
	}
	if len(sessions) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("Aucune session enregistrée."))
		return
	}
	model.SortByActivity(sessions)
	writeSessionTable(r.out, sessions, r.ctrl.Snapshot().SessionID)
}

func (r *repl) exportCurrent(args []string) {
	id := r.ctrl.Snapshot().SessionID
	if id == "" {
		fmt.Fprintln(r.out, styles.RenderWarning("aucune session à exporter"))
		return
	}
	format := "pdf"
	if len(args) > 0 {
		format = args[0]
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		fmt.Fprintln(r.out, styles.RenderWarning(err.Error()))
		return
	}
	path, err := r.a.exportSession(r.cmd, id, f, r.a.exportOptions())
	if err != nil {
		fmt.Fprintln(r.out, styles.RenderError(err.Error()))
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", SuccessStyle.Render("[OK]"), path)
}

func lastNoticeSeq(s session.State) uint64 {
	if n, ok := s.LastNotice(); ok {
		return n.Seq
	}
	return 0
}
