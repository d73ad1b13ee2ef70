package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/lock"
	"github.com/matheus3301/parley/internal/message"
	"github.com/matheus3301/parley/internal/outbox"
	"github.com/matheus3301/parley/internal/session"
	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type cli struct {
	session string
	json    bool
	out     io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("parleyctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sessionFlag := fs.String("session", "", "session name (overrides config default)")
	jsonFlag := fs.Bool("json", false, "output in JSON format")
	limit := fs.Int("limit", 50, "number of rows for chats, history and search")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return 1
	}

	c := &cli{session: sessionName, json: *jsonFlag, out: stdout}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch rest[0] {
	case "status":
		err = c.status()
	case "chats":
		err = c.chats(*limit)
	case "history":
		if len(rest) < 2 {
			fmt.Fprintln(stderr, "usage: parleyctl history <chat>")
			return 1
		}
		err = c.history(rest[1], *limit)
	case "search":
		if len(rest) < 2 {
			fmt.Fprintln(stderr, "usage: parleyctl search <query>")
			return 1
		}
		err = c.search(strings.Join(rest[1:], " "), *limit)
	case "send":
		if len(rest) < 3 {
			fmt.Fprintln(stderr, "usage: parleyctl send <chat> <text>")
			return 1
		}
		err = c.send(ctx, rest[1], strings.Join(rest[2:], " "))
	case "sessions":
		if len(rest) >= 2 && rest[1] == "list" {
			err = c.sessionsList()
		} else {
			fmt.Fprintln(stderr, "usage: parleyctl sessions list")
			return 1
		}
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", rest[0])
		printUsage(stderr)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: parleyctl [--session <name>] [--json] [--limit n] <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  status               Show session status")
	fmt.Fprintln(w, "  chats                List conversations")
	fmt.Fprintln(w, "  history <chat>       Show recent messages")
	fmt.Fprintln(w, "  search <query>       Full-text search")
	fmt.Fprintln(w, "  send <chat> <text>   Queue a message for delivery")
	fmt.Fprintln(w, "  sessions list        List known sessions")
}

func (c *cli) openStore() (*store.DB, error) {
	if err := session.EnsureDir(c.session); err != nil {
		return nil, err
	}
	db, err := store.Open(session.AppDBPath(c.session))
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

type statusOutput struct {
	Session  string `json:"session"`
	Running  bool   `json:"running"`
	PID      int    `json:"pid,omitempty"`
	Chats    int    `json:"chats"`
	Messages int    `json:"messages"`
	Pending  int    `json:"pending"`
	Schema   uint   `json:"schema"`
}

func (c *cli) status() error {
	pid, err := lock.Holder(session.LockPath(c.session))
	if err != nil {
		return fmt.Errorf("check lock: %w", err)
	}
	db, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	chats, err := db.CountChats()
	if err != nil {
		return err
	}
	msgs, err := db.CountMessages("")
	if err != nil {
		return err
	}
	pending, err := db.PendingOutbox()
	if err != nil {
		return err
	}
	schema, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	st := statusOutput{
		Session:  c.session,
		Running:  pid != 0,
		PID:      pid,
		Chats:    chats,
		Messages: msgs,
		Pending:  len(pending),
		Schema:   schema,
	}
	if c.json {
		return c.outputJSON(st)
	}
	state := "stopped"
	if st.Running {
		state = "running (pid " + strconv.Itoa(pid) + ")"
	}
	fmt.Fprintf(c.out, "Session:  %s\n", st.Session)
	fmt.Fprintf(c.out, "Status:   %s\n", state)
	fmt.Fprintf(c.out, "Chats:    %d\n", st.Chats)
	fmt.Fprintf(c.out, "Messages: %d\n", st.Messages)
	fmt.Fprintf(c.out, "Outbox:   %d pending\n", st.Pending)
	fmt.Fprintf(c.out, "Schema:   v%d\n", st.Schema)
	return nil
}

func (c *cli) chats(limit int) error {
	db, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	chats, err := db.ListChats(limit, 0)
	if err != nil {
		return err
	}
	if c.json {
		return c.outputJSON(chats)
	}
	if len(chats) == 0 {
		fmt.Fprintln(c.out, "No chats.")
		return nil
	}
	for _, ch := range chats {
		unread := ""
		if ch.UnreadCount > 0 {
			unread = fmt.Sprintf(" [%d]", ch.UnreadCount)
		}
		when := ""
		if ch.LastMessageAt > 0 {
			when = humanize.Time(time.UnixMilli(ch.LastMessageAt))
		}
		fmt.Fprintf(c.out, "%-20s %-16s %s%s\n", ch.DisplayName(), when, ch.LastMessagePreview, unread)
	}
	return nil
}

func (c *cli) history(name string, limit int) error {
	db, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	chat, err := db.GetChatByName(name)
	if err != nil {
		return err
	}
	if chat == nil {
		return fmt.Errorf("chat %q not found", name)
	}
	msgs, err := db.ListMessages(chat.ID, 0, limit)
	if err != nil {
		return err
	}
	if c.json {
		return c.outputJSON(msgs)
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		sender := m.SenderName
		if m.FromMe {
			sender = "me"
		}
		ts := time.UnixMilli(m.Timestamp).Format("2006-01-02 15:04")
		fmt.Fprintf(c.out, "%s  %-12s %s\n", ts, sender, m.Body)
	}
	return nil
}

func (c *cli) search(query string, limit int) error {
	db, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	results, err := db.SearchMessages(query, "", limit)
	if err != nil {
		return err
	}
	if c.json {
		return c.outputJSON(results)
	}
	if len(results) == 0 {
		fmt.Fprintln(c.out, "No results.")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(c.out, "%-20s %s\n", r.Message.ChatID, r.Snippet)
	}
	return nil
}

type sendOutput struct {
	ChatID      string `json:"chat_id"`
	ClientMsgID string `json:"client_msg_id"`
}

// send queues text in the session outbox. A running parley delivers it on its
// next outbox poll; otherwise it goes out at the next start.
func (c *cli) send(ctx context.Context, name, text string) error {
	db, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	chatID := name
	chat, err := db.GetChatByName(name)
	if err != nil {
		return err
	}
	if chat != nil {
		chatID = chat.ID
	}

	sender := outbox.NewSender(db, nil, bus.New(), zap.NewNop())
	id, err := sender.Queue(ctx, chatID, message.Text{Body: text})
	if err != nil {
		return err
	}
	if c.json {
		return c.outputJSON(sendOutput{ChatID: chatID, ClientMsgID: id})
	}
	fmt.Fprintf(c.out, "Queued %s for %s\n", id, chatID)
	return nil
}

func (c *cli) sessionsList() error {
	names, err := session.List()
	if err != nil {
		return err
	}
	type entry struct {
		Name    string `json:"name"`
		Path    string `json:"path"`
		Running bool   `json:"running"`
	}
	entries := make([]entry, 0, len(names))
	for _, n := range names {
		pid, err := lock.Holder(session.LockPath(n))
		if err != nil {
			return err
		}
		entries = append(entries, entry{Name: n, Path: session.Dir(n), Running: pid != 0})
	}
	if c.json {
		return c.outputJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "No sessions found.")
		return nil
	}
	for _, e := range entries {
		running := "stopped"
		if e.Running {
			running = "running"
		}
		fmt.Fprintf(c.out, "%-20s %s (%s)\n", e.Name, e.Path, running)
	}
	return nil
}

func (c *cli) outputJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}
