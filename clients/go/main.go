// Command chat is a minimal terminal client for the support relay, mainly
// useful for poking at a local instance.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/studyflow/supportrelay/clients/go/supportchat"
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8080", "relay base URL")
		token   = flag.String("token", "", "session token")
		userID  = flag.String("user", "", "own user id")
		agent   = flag.Bool("agent", false, "join the support pool")
		target  = flag.String("target", "", "conversation to send into (agents)")
	)
	flag.Parse()

	if *token == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: chat -token <token> -user <id> [-agent] [-target <requester id>]")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := supportchat.Dial(ctx, *baseURL, *token, *userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		os.Exit(1)
	}
	defer c.Close()

	if err := c.JoinOwn(); err != nil {
		fmt.Fprintln(os.Stderr, "join:", err)
		os.Exit(1)
	}
	if *agent {
		if err := c.JoinPool(); err != nil {
			fmt.Fprintln(os.Stderr, "join pool:", err)
			os.Exit(1)
		}
	}

	go func() {
		for f := range c.Events() {
			switch f.Type {
			case "message":
				fmt.Printf("[%s] %s: %s\n", f.Message.ConversationID, f.Message.AuthorName, f.Message.Body)
			case "conversation_activity":
				fmt.Printf("[pool] activity in %s: %s\n", f.Activity.ConversationID, f.Activity.Preview)
			case "error":
				fmt.Printf("error (%s): %s\n", f.Error.Code, f.Error.Message)
			case "joined":
				fmt.Printf("joined %s\n", f.Room)
			}
		}
		fmt.Println("connection closed")
		os.Exit(0)
	}()

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		body := strings.TrimSpace(sc.Text())
		if body == "" {
			continue
		}
		if _, err := c.Send(*target, body); err != nil {
			fmt.Fprintln(os.Stderr, "send:", err)
		}
	}
}
