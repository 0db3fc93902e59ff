package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/guarded-chat/internal/model"
)

var (
	askMarket       string
	askCategory     string
	askTimeframe    string
	askConversation string
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one prompt and print the guarded response as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initChat(ctx, "chat")
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Service.Handle(ctx, model.ChatRequest{
			Message:        args[0],
			Market:         askMarket,
			Category:       askCategory,
			Timeframe:      askTimeframe,
			ConversationID: askConversation,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(resp), "ask: encode response")
	},
}

func init() {
	askCmd.Flags().StringVar(&askMarket, "market", "", "market or region the question targets")
	askCmd.Flags().StringVar(&askCategory, "category", "", "product category")
	askCmd.Flags().StringVar(&askTimeframe, "timeframe", "", "period the question covers")
	askCmd.Flags().StringVar(&askConversation, "conversation", "", "continue an existing conversation")
	rootCmd.AddCommand(askCmd)
}
