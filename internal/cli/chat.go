package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/docchat/internal/model"
	"github.com/capitalize-ai/docchat/internal/service"
	"github.com/capitalize-ai/docchat/internal/store"
)

const chatHelp = `Commands:
  /new              start a new thread
  /open <document>  load the threads of a document
  /use <thread>     switch to a thread
  /file <path>      upload a PDF into the current thread
  /list             list threads
  /refresh          reload all history
  /help             show this help
  /quit             exit
Anything else is asked as a question about the current thread's document.`

func newChatCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.newSession()
			if err != nil {
				return err
			}

			r := &repl{sess: sess, out: cmd.OutOrStdout()}
			return r.run(cmd.Context(), cmd.InOrStdin())
		},
	}
}

// repl is an interactive loop over one session.
type repl struct {
	sess *service.Session
	out  io.Writer
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	if err := r.sess.Start(ctx); err != nil {
		fmt.Fprintf(r.out, "! could not load history: %v\n", err)
	}
	unsubscribe := r.sess.Store.Subscribe(r.print)
	defer unsubscribe()

	fmt.Fprintln(r.out, "Type /help for commands.")
	r.list()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			r.submit(ctx, service.Submission{Question: line})
			continue
		}

		name, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch name {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(r.out, chatHelp)
		case "/new":
			id := r.sess.Store.CreateThread()
			fmt.Fprintf(r.out, "Started %s. Upload a PDF with /file.\n", id)
		case "/open":
			if arg == "" {
				fmt.Fprintln(r.out, "! usage: /open <document>")
				continue
			}
			if err := r.sess.History.OpenDocument(ctx, arg); err != nil {
				fmt.Fprintf(r.out, "! %v\n", err)
				continue
			}
			r.sess.EnsureThread()
			r.list()
		case "/use":
			if err := r.sess.Store.SelectThread(arg); err != nil {
				fmt.Fprintf(r.out, "! no thread %q\n", arg)
				continue
			}
			r.history()
		case "/file":
			r.upload(ctx, arg)
		case "/list":
			r.list()
		case "/refresh":
			if err := r.sess.History.Refresh(ctx); err != nil {
				fmt.Fprintf(r.out, "! %v\n", err)
				continue
			}
			r.sess.EnsureThread()
			r.list()
		default:
			fmt.Fprintf(r.out, "! unknown command %s\n", name)
		}
	}
}

func (r *repl) upload(ctx context.Context, path string) {
	if path == "" {
		fmt.Fprintln(r.out, "! usage: /file <path>")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(r.out, "! %v\n", err)
		return
	}
	defer f.Close()

	r.submit(ctx, service.Submission{
		File: &service.PendingFile{Name: filepath.Base(path), Content: f},
	})
}

func (r *repl) submit(ctx context.Context, sub service.Submission) {
	active := r.sess.Store.Snapshot().ActiveID()
	out := r.sess.Arbiter.Submit(ctx, active, sub)

	switch out.Kind {
	case service.OutcomeNoop:
		if sub.File == nil {
			fmt.Fprintln(r.out, "! upload a PDF with /file before asking")
		}
	case service.OutcomeAlreadyBound:
		fmt.Fprintln(r.out, "! this thread already has a document; start a new one with /new")
	case service.OutcomeBusy:
		fmt.Fprintln(r.out, "! this thread is busy")
	case service.OutcomeNotFound:
		fmt.Fprintln(r.out, "! no current thread; start one with /new")
	case service.OutcomeUploadFailed:
		fmt.Fprintf(r.out, "! upload failed: %v\n", out.Err)
	}
}

// print echoes messages the user did not type as they are committed.
func (r *repl) print(ev model.StoreEvent, _ *store.Snapshot) {
	switch ev.Type {
	case model.EventMessageAppended:
		if ev.Thread == nil || len(ev.Thread.Messages) == 0 {
			return
		}
		m := ev.Thread.Messages[len(ev.Thread.Messages)-1]
		if m.Role != model.RoleUser {
			fmt.Fprintln(r.out, m.Text)
		}
	case model.EventThreadUpdated:
		if ev.Thread != nil && len(ev.Thread.Messages) > 0 {
			m := ev.Thread.Messages[len(ev.Thread.Messages)-1]
			if m.Role == model.RoleSystem {
				fmt.Fprintln(r.out, m.Text)
			}
		}
	}
}

func (r *repl) list() {
	snap := r.sess.Store.Snapshot()
	for _, t := range snap.Threads() {
		marker := " "
		if t.ID == snap.ActiveID() {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %s\t%s\t%d messages\n", marker, t.ID, t.Title, len(t.Messages))
	}
}

func (r *repl) history() {
	t, ok := r.sess.Store.Snapshot().Active()
	if !ok {
		return
	}
	fmt.Fprintf(r.out, "%s (%s)\n", t.Title, t.ID)
	for _, m := range t.Messages {
		fmt.Fprintf(r.out, "%s: %s\n", m.Role, m.Text)
	}
}
