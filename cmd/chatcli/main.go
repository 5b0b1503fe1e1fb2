// Package main provides a simple terminal chat client for the lumenchat API.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	Model          string `json:"model"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Frame is one server-sent event payload from the chat stream.
type Frame struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client talks to the chat API over HTTP.
type Client struct {
	baseURL        string
	token          string
	model          string
	conversationID string
	httpClient     *http.Client
}

// NewClient creates a client for the given server address.
func NewClient(baseURL, token, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		model:   model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// SendMessage posts one chat turn and streams the reply to stdout. The
// conversation id from the response header is kept so following turns
// continue the same conversation.
func (c *Client) SendMessage(content string) error {
	body, err := json.Marshal(ChatRequest{
		Message:        content,
		Model:          c.model,
		ConversationID: c.conversationID,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("server error [%d]: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server error [%d]", resp.StatusCode)
	}

	if id := resp.Header.Get("X-Conversation-Id"); id != "" {
		c.conversationID = id
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		var frame Frame
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			log.Printf("Unmarshal error: %v", err)
			continue
		}

		switch {
		case frame.Error != "":
			fmt.Printf("\n[error] %s\n", frame.Error)
			return nil
		case frame.Done:
			fmt.Println()
			return nil
		default:
			fmt.Print(frame.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}

	fmt.Println()
	return nil
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Chat server address")
	token := flag.String("token", "", "Access token")
	model := flag.String("model", "gpt-4o-mini", "Model to chat with")
	flag.Parse()

	log.SetFlags(log.Ltime)

	if *token == "" {
		log.Fatal("a -token is required, sign in first via /v1/auth/otp")
	}

	client := NewClient(*addr, *token, *model)

	fmt.Printf("Connected to %s (model %s)\n", *addr, *model)
	fmt.Println("Type a message and press Enter to send.")
	fmt.Println("Commands: /quit to exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if input == "/quit" {
			fmt.Println("Bye!")
			return
		}

		if err := client.SendMessage(input); err != nil {
			log.Printf("Send error: %v", err)
		}
	}
}
