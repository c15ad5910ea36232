package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"edulearn/edulearn/bootstrap"
	"edulearn/edulearn/config"
	"edulearn/edulearn/services/auth"
	"edulearn/edulearn/services/chatsession"
	"edulearn/edulearn/utils/color"
	"edulearn/edulearn/utils/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newChatCmd() *cobra.Command {
	var (
		email     string
		backend   string
		generator string
		noColor   bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the tutor in this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			if backend != "" {
				cfg.Backend = backend
			}
			if generator != "" {
				cfg.Generator = generator
			}
			if noColor {
				color.Disable()
			}
			if err := logging.InitLogger(cfg.LogDir); err != nil {
				return err
			}
			defer logging.Sync()

			ctx := cmd.Context()
			stack, err := bootstrap.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer stack.Close()

			user := auth.UserFromEmail(email)
			provider := auth.NewProvider()
			store := stack.NewStore()
			unsubscribe := store.Follow(provider)
			defer unsubscribe()

			provider.SignIn(ctx, user)
			defer provider.SignOut(context.Background())
			logging.AppLogger.Info("cli session started", zap.String("owner", user.ID), zap.String("backend", cfg.Backend))

			r := newREPL(store, user, cmd.InOrStdin(), cmd.OutOrStdout())
			return r.run(ctx)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email to sign in with")
	cmd.Flags().StringVarP(&backend, "backend", "b", "", "document store: memory, postgres, redis or supabase")
	cmd.Flags().StringVarP(&generator, "generator", "g", "", "reply source: simulated, ollama, openai or none")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

type repl struct {
	store *chatsession.Store
	user  auth.User
	in    *bufio.Scanner
	out   io.Writer

	// listed is the numbering shown by the last /list, used by /select N
	listed []chatsession.Session
}

func newREPL(store *chatsession.Store, user auth.User, in io.Reader, out io.Writer) *repl {
	return &repl{store: store, user: user, in: bufio.NewScanner(in), out: out}
}

func (r *repl) run(ctx context.Context) error {
	snap := r.store.Snapshot()
	fmt.Fprintf(r.out, "\nSigned in as %s (%s)\n", r.user.DisplayName, r.user.Email)
	if snap.LoadStatus == chatsession.LoadError {
		fmt.Fprintln(r.out, color.Warning("Could not load your chats; /reload to try again."))
	}
	fmt.Fprintln(r.out, color.Muted("Commands: /new /list [query] /select N /rename TITLE /star /delete /clear /sync /reload /export [path] /quit"))
	r.list("")

	for {
		fmt.Fprint(r.out, color.Prompt("you> "))
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return r.in.Err()
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		quit, err := r.handle(ctx, line)
		if err != nil {
			fmt.Fprintln(r.out, color.Error(describe(err)))
		}
		if quit {
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, r.send(ctx, line)
	}
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/new":
		res, err := r.store.Dispatch(ctx, chatsession.CreateSessionCmd{OwnerID: r.user.ID})
		if err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, color.Info("Started a new chat."))
		r.printActive(res.Snapshot)
	case "/list":
		r.list(arg)
	case "/select":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(r.listed) {
			return false, fmt.Errorf("pick a number from /list")
		}
		res, err := r.store.Dispatch(ctx, chatsession.SelectSessionCmd{SessionID: r.listed[n-1].ID})
		if err != nil {
			return false, err
		}
		r.printActive(res.Snapshot)
	case "/rename":
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		if _, err := r.store.Dispatch(ctx, chatsession.RenameSessionCmd{SessionID: id, Title: arg}); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, color.Info("Renamed."))
	case "/star":
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		res, err := r.store.Dispatch(ctx, chatsession.ToggleStarCmd{SessionID: id})
		if err != nil {
			return false, err
		}
		if *res.Starred {
			fmt.Fprintln(r.out, color.Star("★ Starred."))
		} else {
			fmt.Fprintln(r.out, color.Info("Unstarred."))
		}
	case "/delete":
		active, ok := r.store.Snapshot().Active()
		if !ok {
			return false, errNoActive
		}
		cmd := chatsession.DeleteSessionCmd{SessionID: active.ID}
		cmd.Confirmed = r.confirm(fmt.Sprintf("Delete %q?", active.Title))
		if !cmd.Confirmed {
			fmt.Fprintln(r.out, color.Muted("Kept."))
			return false, nil
		}
		res, err := r.store.Dispatch(ctx, cmd)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, color.Info("Deleted."))
		r.printActive(res.Snapshot)
	case "/clear":
		cmd := chatsession.ClearSessionsCmd{Confirmed: r.confirm("Delete all of your chats?")}
		if !cmd.Confirmed {
			fmt.Fprintln(r.out, color.Muted("Kept."))
			return false, nil
		}
		if _, err := r.store.Dispatch(ctx, cmd); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, color.Info("All chats deleted."))
	case "/sync":
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		if _, err := r.store.Dispatch(ctx, chatsession.SyncSessionCmd{SessionID: id}); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, color.Info("Saved."))
	case "/reload":
		if _, err := r.store.Dispatch(ctx, chatsession.LoadSessionsCmd{OwnerID: r.user.ID}); err != nil {
			return false, err
		}
		r.list("")
	case "/export":
		return false, r.export(arg)
	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
	return false, nil
}

var errNoActive = errors.New("no chat selected; use /new or /select")

func (r *repl) activeID() (string, error) {
	if active, ok := r.store.Snapshot().Active(); ok {
		return active.ID, nil
	}
	return "", errNoActive
}

// send appends line to the active chat, starting one when none is selected.
func (r *repl) send(ctx context.Context, line string) error {
	id, err := r.activeID()
	if err != nil {
		res, err := r.store.Dispatch(ctx, chatsession.CreateSessionCmd{OwnerID: r.user.ID})
		if err != nil {
			return err
		}
		id = res.SessionID
	}
	fmt.Fprintln(r.out, color.Muted("tutor is typing..."))
	res, err := r.store.Dispatch(ctx, chatsession.AppendMessageCmd{SessionID: id, Text: line})
	if res.Append != nil && res.Append.Reply != nil {
		fmt.Fprintln(r.out, color.Assistant("tutor> ")+res.Append.Reply.Text)
	}
	return err
}

func (r *repl) list(query string) {
	starred, rest := chatsession.PartitionStarred(chatsession.FilterByTitle(r.store.Snapshot().Sessions, query))
	r.listed = append(starred, rest...)
	if len(r.listed) == 0 {
		fmt.Fprintln(r.out, color.Muted("No chats yet. Type a message to start one."))
		return
	}
	activeID := r.store.Snapshot().ActiveSessionID
	for i, sess := range r.listed {
		marker := " "
		if sess.ID == activeID {
			marker = ">"
		}
		title := sess.Title
		if sess.Starred {
			title = color.Star("★ ") + title
		}
		fmt.Fprintf(r.out, "%s %2d. %s %s\n", marker, i+1, title, color.Muted(sess.CreatedAt.Local().Format("Jan 2")))
	}
}

func (r *repl) printActive(snap chatsession.Snapshot) {
	active, ok := snap.Active()
	if !ok {
		fmt.Fprintln(r.out, color.Muted("No chat selected."))
		return
	}
	fmt.Fprintln(r.out, color.Prompt("== "+active.Title+" =="))
	for _, m := range active.Messages {
		if m.Sender == chatsession.SenderAssistant {
			fmt.Fprintln(r.out, color.Assistant("tutor> ")+m.Text)
			continue
		}
		fmt.Fprintln(r.out, color.Prompt("you> ")+m.Text)
	}
}

func (r *repl) confirm(question string) bool {
	fmt.Fprint(r.out, color.Warning(question+" [y/N] "))
	if !r.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(r.in.Text()))
	return answer == "y" || answer == "yes"
}

func (r *repl) export(path string) error {
	if path == "" {
		path = fmt.Sprintf("edulearn-chats-%s.json", time.Now().Format("20060102-150405"))
	}
	data, err := r.store.Export()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(r.out, color.Info("Exported to "+path))
	return nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, chatsession.ErrStorePersistFailed):
		return "Couldn't save to the server; /sync to retry. (" + err.Error() + ")"
	case errors.Is(err, chatsession.ErrResponseFailed):
		return "The tutor couldn't answer right now. Please try again."
	case errors.Is(err, chatsession.ErrNotFound):
		return "That chat no longer exists."
	}
	return err.Error()
}
