package main

import (
	"bufio"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/agent-console-go/internal/session"
)

// Minimal terminal chat against a running console server. Reads lines from
// stdin and streams the assistant's reply as it arrives.
func main() {
	tokenURL := flag.String("token-url", "http://localhost:8080/api/chat/token", "chat token endpoint")
	wsURL := flag.String("ws-url", "ws://localhost:8081/ws", "gateway WebSocket endpoint")
	sessionToken := flag.String("session", os.Getenv("CONSOLE_SESSION_TOKEN"), "console session token")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	if *sessionToken == "" {
		fmt.Fprintln(os.Stderr, "missing session token: pass -session or set CONSOLE_SESSION_TOKEN")
		os.Exit(1)
	}

	source := &session.HTTPTokenSource{
		URL:    *tokenURL,
		Header: http.Header{"Authorization": []string{"Bearer " + *sessionToken}},
	}

	renderer := &transcriptRenderer{out: os.Stdout}

	s, err := session.New(session.Options{
		URL:         *wsURL,
		TokenSource: source,
		OnStatus: func(status session.Status) {
			fmt.Fprintf(os.Stderr, "\n[%s]\n", status)
		},
		OnError: func(message string) {
			fmt.Fprintf(os.Stderr, "\n[error] %s\n", message)
		},
		OnTranscript: renderer.render,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer s.Close()

	s.Open()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-quit:
			fmt.Fprintln(os.Stderr, "\nbye")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if err := s.Send(text); err != nil {
				fmt.Fprintf(os.Stderr, "[send failed] %v\n", err)
			}
		}
	}
}

// transcriptRenderer prints only what is new since the last update: each
// completed turn once, and streamed assistant text incrementally.
type transcriptRenderer struct {
	mu        sync.Mutex
	out       *os.File
	printed   int
	streamLen int
}

func (r *transcriptRenderer) render(msgs []session.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := r.printed; i < len(msgs); i++ {
		msg := msgs[i]
		if msg.Streaming {
			fmt.Fprint(r.out, msg.Content[r.streamLen:])
			r.streamLen = len(msg.Content)
			return
		}

		if i == r.printed && r.streamLen > 0 {
			// The entry we were streaming has closed out.
			fmt.Fprint(r.out, msg.Content[r.streamLen:])
			fmt.Fprintln(r.out)
		} else {
			fmt.Fprintf(r.out, "%s> %s\n", msg.Role, msg.Content)
		}
		r.streamLen = 0
		r.printed = i + 1
	}
}
