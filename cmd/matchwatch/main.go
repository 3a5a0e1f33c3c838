package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quarterchat/match-server-go/internal/model"
	"github.com/quarterchat/match-server-go/internal/poller"
)

// matchwatch is a small operator tool: `create` provisions a match and
// prints both join links, `watch` follows a match's state the same way a
// browser poller would.
func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	server := flag.String("server", "http://localhost:8080", "match server base URL")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "create":
		if err := runCreate(*server); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "watch":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		if err := runWatch(*server, args[1]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: matchwatch [-server URL] <command>

commands:
  create            create a match and print both join links
  watch <matchID>   poll a match's state until it ends`)
}

func runCreate(server string) error {
	client := &http.Client{Timeout: 15 * time.Second}

	resp, err := client.Post(server+"/api/match", "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server answered status %d", resp.StatusCode)
	}

	var body struct {
		MatchID string `json:"match_id"`
		ALink   string `json:"a_link"`
		BLink   string `json:"b_link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}

	fmt.Println("match:", body.MatchID)
	fmt.Println("a:", body.ALink)
	fmt.Println("b:", body.BLink)
	return nil
}

func runWatch(server, matchID string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	p := poller.New(poller.Config{
		BaseURL: server,
		MatchID: matchID,
		OnState: printSnapshot,
	})

	reason, err := p.Run(ctx)
	switch reason {
	case poller.StopExpired:
		fmt.Println("match expired")
	case poller.StopTerminal:
		fmt.Println("match is no longer pollable:", err)
	case poller.StopFailures:
		return err
	case poller.StopCanceled:
		fmt.Println("stopped")
	}
	return nil
}

func printSnapshot(s *model.Snapshot) {
	line := fmt.Sprintf("%s a_sent=%v b_sent=%v", s.MatchID, s.ASentFirst, s.BSentFirst)
	if s.ExpiresAt != nil {
		remaining := time.Until(time.UnixMilli(*s.ExpiresAt)).Round(time.Second)
		line += fmt.Sprintf(" remaining=%s", remaining)
	}
	fmt.Println(line)
}
