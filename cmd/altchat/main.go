// Command altchat is a terminal client for the concierge chat. It drives the
// same ChatService as the HTTP server, against an in-memory session store.
//
// Type a message, or the number of one of the suggested replies.
// /reset starts a new conversation, /quit exits.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/domain"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/knowledge"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/router"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/service"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/cache"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/observability"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/infra/session"

	"go.uber.org/zap"
)

func main() {
	knowledgePath := flag.String("knowledge", "knowledge.yaml", "knowledge base document; the built-in copy is used when absent")
	width := flag.Int("width", 80, "word wrap width")
	debug := flag.Bool("debug", false, "log routing decisions to stderr")
	flag.Parse()

	logger := zap.NewNop()
	if *debug {
		logger = observability.NewLogger("debug")
	}
	defer logger.Sync()

	kb, err := knowledge.Load(*knowledgePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "altchat:", err)
		os.Exit(1)
	}

	store := cache.NewSessionStore(time.Hour)
	defer store.Close()
	signer, err := session.NewSigner("altchat-local", time.Hour)
	if err != nil {
		fmt.Fprintln(os.Stderr, "altchat:", err)
		os.Exit(1)
	}
	svc := service.NewChatService(router.New(kb), store, signer, observability.NewMetrics(), logger, service.Options{})

	ui := newRenderer(*width)
	if err := run(context.Background(), svc, ui, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "altchat:", err)
		os.Exit(1)
	}
}

// run is the read-eval-print loop.
func run(ctx context.Context, svc *service.ChatService, ui *renderer, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	var token string
	var options []string

	reply, err := svc.ProcessMessage(ctx, &domain.ChatRequest{Message: "hello"})
	if err != nil {
		return err
	}
	token, options = reply.SessionToken, reply.Options
	fmt.Fprintln(out, ui.Reply(reply.Response))

	for {
		fmt.Fprint(out, ui.Prompt())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := svc.ResetSession(ctx, token); err != nil {
				fmt.Fprintln(out, ui.Error(err))
			}
			token, options = "", nil
			fmt.Fprintln(out, ui.Notice("conversation reset"))
			continue
		}

		reply, err := svc.ProcessMessage(ctx, &domain.ChatRequest{
			Message:      pickOption(line, options),
			SessionToken: token,
		})
		if err != nil {
			fmt.Fprintln(out, ui.Error(err))
			continue
		}
		token, options = reply.SessionToken, reply.Options
		fmt.Fprintln(out, ui.Reply(reply.Response))
	}
}
