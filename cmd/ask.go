package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/xhad/copilot/internal/models"
)

var (
	askJSON        bool
	askNoFollowups bool
	askSession     string
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Answer a single customer query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the copilot interactively",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
	askCmd.Flags().BoolVar(&askNoFollowups, "no-followups", false, "skip follow-up suggestions")
	askCmd.Flags().StringVar(&askSession, "session", "", "session id to report back")
	chatCmd.Flags().BoolVar(&askNoFollowups, "no-followups", false, "skip follow-up suggestions")
	rootCmd.AddCommand(askCmd, chatCmd)
}

func queryRequest(query, channel, session string) models.QueryRequest {
	include := !askNoFollowups
	return models.QueryRequest{
		Query:           query,
		Channel:         channel,
		SessionID:       session,
		IncludeFollowup: &include,
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	spinner := getSpinner("🔍 Thinking...")
	resp, err := a.copilot.Query(ctx, queryRequest(strings.Join(args, " "), "cli", askSession))
	_ = spinner.Finish()
	if err != nil {
		return err
	}

	if askJSON {
		return printJSON(resp)
	}
	printResponse(resp)
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	session := uuid.NewString()
	color.Cyan("\nChat with %s support (type 'exit' to quit)", cfg.Product)

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(query, "exit") {
			break
		}
		if query == "" {
			continue
		}

		spinner := getSpinner("🔍 Searching documentation...")
		resp, err := a.copilot.Query(ctx, queryRequest(query, "cli", session))
		_ = spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}
		printResponse(resp)
	}

	return scanner.Err()
}
