package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/campus-agents/internal/chatapi"
	"github.com/jonathan/campus-agents/internal/config"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the chat backend directly",
}

var chatToken string

var chatSendCmd = &cobra.Command{
	Use:   "send <conversation_id> [message]",
	Short: "Send a message, such as a reviewed draft reply, to a conversation",
	Long: `Send a message to a conversation on BACKEND_API_URL as the user of --token.
The chat_assistant pipeline only drafts replies; this command is the explicit
step that posts one. The message is read from stdin when not given.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runChatSend,
}

func init() {
	chatSendCmd.Flags().StringVar(&chatToken, "token", "", "Bearer token of the sending user (required)")
	_ = chatSendCmd.MarkFlagRequired("token")
	chatCmd.AddCommand(chatSendCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChatSend(cmd *cobra.Command, args []string) error {
	var content string
	if len(args) == 2 {
		content = args[1]
	} else {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		content = string(raw)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("message is empty")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client := chatapi.New(cfg.BackendAPIURL, nil)
	msg, err := client.SendMessage(cmd.Context(), chatToken, args[0], content)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(msg)
}
