// Package main is chatctl, a command line client for a running chatdesk server.
//
//	chatctl [-addr URL] send -user ID -content TEXT [-format text|markdown]
//	chatctl [-addr URL] users
//	chatctl [-addr URL] conversations
//	chatctl [-addr URL] watch
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/edgard/chatdesk/internal/client"
	"github.com/edgard/chatdesk/internal/database"
	"github.com/edgard/chatdesk/internal/logger"
	"github.com/edgard/chatdesk/internal/poller"
)

var errUsage = errors.New("usage: chatctl [-addr URL] send|users|conversations|watch [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "chatctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("chatctl", flag.ContinueOnError)
	addr := fs.String("addr", client.DefaultBaseURL, "chatdesk API base URL")
	logLevel := fs.String("log-level", "warn", "Log level for watch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	c := client.New(*addr, nil)
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "send":
		return runSend(ctx, c, rest, out)
	case "users":
		return runUsers(ctx, c, out)
	case "conversations":
		return runConversations(ctx, c, out)
	case "watch":
		return runWatch(ctx, c, *logLevel, out)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func runSend(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	userID := fs.Int64("user", 0, "Bot user id to send as")
	content := fs.String("content", "", "Message content")
	format := fs.String("format", database.FormatText, "Message format: text or markdown")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == 0 || *content == "" {
		return errors.New("send requires -user and -content")
	}

	res, err := c.BotSend(ctx, *userID, *content, *format)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "sent message %d to conversation %d\n", res.MessageID, res.ConversationID)
	return nil
}

func runUsers(ctx context.Context, c *client.Client, out io.Writer) error {
	users, err := c.Users(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Type, u.CreatedAt)
	}
	return tw.Flush()
}

func runConversations(ctx context.Context, c *client.Client, out io.Writer) error {
	convs, err := c.Conversations(ctx)
	if err != nil {
		return err
	}
	writeConversations(out, convs)
	return nil
}

func writeConversations(out io.Writer, convs []database.Conversation) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUNREAD\tMUTED\tTIME\tLAST MESSAGE")
	for _, conv := range convs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%t\t%s\t%s\n",
			conv.ID, conv.Name, conv.Unread, conv.Muted, conv.LastTime, conv.LastMessage)
	}
	_ = tw.Flush()
}

// runWatch prints the conversation list and every new message of the selected
// conversation until interrupted.
func runWatch(ctx context.Context, c *client.Client, logLevel string, out io.Writer) error {
	log := logger.New(os.Stderr, logLevel, false)

	var (
		p        *poller.Poller
		mu       sync.Mutex
		lastID   int64
		lastConv int64
	)
	p = poller.New(c, log, poller.WithOnChange(func() {
		mu.Lock()
		defer mu.Unlock()
		current := p.Current()
		if current != lastConv {
			lastConv, lastID = current, 0
			writeConversations(out, p.Conversations())
			if conv, ok := p.CurrentConversation(); ok {
				fmt.Fprintf(out, "== %s ==\n", conv.Name)
			}
		}
		for _, m := range p.Messages() {
			if m.ID <= lastID {
				continue
			}
			lastID = m.ID
			fmt.Fprintf(out, "[%d] %s: %s\n", m.ConversationID, m.SenderName, m.Content)
		}
	}))

	return p.Run(ctx)
}
