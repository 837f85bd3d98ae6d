package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/justchokingaround/vidsource/internal/clipboard"
	"github.com/justchokingaround/vidsource/internal/database"
	"github.com/justchokingaround/vidsource/internal/player/mpv"
	"github.com/justchokingaround/vidsource/internal/providers"
	"github.com/justchokingaround/vidsource/internal/session"
	"github.com/justchokingaround/vidsource/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <movie|series|anime> <id>",
	Short: "Open a playback session in the terminal",
	Example: `  vidsource watch movie 550
  vidsource watch anime 21 -e 5 --sub
  vidsource watch series 1399 -s 1 -e 2 --mpv`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := requestFromArgs(cmd, args)
		if err != nil {
			return err
		}
		svc, err := buildServices(cfg, logger)
		if err != nil {
			return err
		}

		db, err := database.Open(&cfg.Database)
		if err != nil {
			// Preferences are optional; playback works without them
			logger.Warn("audio preferences unavailable", "error", err)
			db = nil
		} else {
			defer func() {
				if err := database.Close(db); err != nil {
					logger.Error("failed to close database", "error", err)
				}
			}()
		}

		req = applyAudioPreference(cmd, db, req)

		opts := session.OptionsFromConfig(cfg.Player)
		opts.Logger = logger
		deps := tui.Deps{
			Resolver:  svc.resolver,
			Subtitles: svc.subtitles,
			Fallback:  svc.fallback,
			Session:   opts,
			DB:        db,
			Clipboard: clipboard.NewService(cfg.Advanced.ClipboardCommand, logger),
			Logger:    logger,
		}

		if useMPV, _ := cmd.Flags().GetBool("mpv"); useMPV {
			p, err := mpv.New(cfg.Player, cfg.Advanced.Debug, logger)
			if err != nil {
				return err
			}
			deps.Surface = p
		}

		snap, err := tui.Run(cmd.Context(), req, deps)
		if err != nil {
			return err
		}

		if snap.Active != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Last source: %s\n%s\n", snap.Active.Name, snap.Active.URL)
		}
		return nil
	},
}

func init() {
	addRequestFlags(watchCmd)
	watchCmd.Flags().Bool("sub", false, "subbed audio (anime)")
	watchCmd.MarkFlagsMutuallyExclusive("dub", "sub")
	watchCmd.Flags().Bool("mpv", false, "play direct sources in mpv (press p)")
}

// applyAudioPreference fills Dubbed for anime from the stored preference when
// neither --dub nor --sub was given
func applyAudioPreference(cmd *cobra.Command, db *gorm.DB, req providers.SourceRequest) providers.SourceRequest {
	if req.Kind != providers.MediaKindAnime {
		return req
	}
	if cmd.Flags().Changed("dub") {
		return req
	}
	if sub, _ := cmd.Flags().GetBool("sub"); sub {
		req.Dubbed = false
		return req
	}
	if db == nil {
		return req
	}

	id, err := strconv.Atoi(req.AniListID)
	if err != nil {
		return req
	}
	pref, err := database.GetAudioPreference(db, id)
	if err != nil {
		logger.Warn("failed to load audio preference", "anilist_id", id, "error", err)
		return req
	}
	if pref != "" {
		req.Dubbed = pref == database.PreferenceDub
		logger.Debug("using stored audio preference", "anilist_id", id, "preference", pref)
	}
	return req
}
