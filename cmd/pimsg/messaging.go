package main

import (
	"github.com/spf13/cobra"

	"github.com/pi-agent/messenger/internal/dispatch"
)

var sendReplyTo string

var sendCmd = &cobra.Command{
	Use:   "send <to> <message>",
	Short: "Deliver a message to one active peer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := dispatch.Params{"to": args[0], "message": args[1]}
		if sendReplyTo != "" {
			params["replyTo"] = sendReplyTo
		}
		return runAction(cmd, "send", params)
	},
}

var broadcastReplyTo string

var broadcastCmd = &cobra.Command{
	Use:   "broadcast <message>",
	Short: "Deliver a message to every active peer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := dispatch.Params{"message": args[0]}
		if broadcastReplyTo != "" {
			params["replyTo"] = broadcastReplyTo
		}
		return runAction(cmd, "broadcast", params)
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendReplyTo, "reply-to", "", "id of the message this replies to")
	broadcastCmd.Flags().StringVar(&broadcastReplyTo, "reply-to", "", "id of the message this replies to")
	rootCmd.AddCommand(sendCmd, broadcastCmd)
}
