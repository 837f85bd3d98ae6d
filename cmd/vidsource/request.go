package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justchokingaround/vidsource/internal/providers"
)

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("season", "s", 0, "season number (series)")
	cmd.Flags().IntP("episode", "e", 0, "episode number (series and anime)")
	cmd.Flags().Bool("dub", false, "dubbed audio (anime)")
}

// requestFromArgs builds a validated request from "<kind> <id>" and flags
func requestFromArgs(cmd *cobra.Command, args []string) (providers.SourceRequest, error) {
	if len(args) != 2 {
		return providers.SourceRequest{}, fmt.Errorf("expected <kind> <id>, got %d arguments", len(args))
	}

	kind, err := providers.ParseMediaKind(args[0])
	if err != nil {
		return providers.SourceRequest{}, err
	}
	season, _ := cmd.Flags().GetInt("season")
	episode, _ := cmd.Flags().GetInt("episode")
	dubbed, _ := cmd.Flags().GetBool("dub")

	req := providers.NewSourceRequest(kind, args[1], season, episode, dubbed)
	if err := req.Validate(); err != nil {
		return providers.SourceRequest{}, err
	}
	return req, nil
}
