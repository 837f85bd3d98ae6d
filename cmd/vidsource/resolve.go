package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/justchokingaround/vidsource/internal/providers"
	"github.com/justchokingaround/vidsource/internal/subtitles"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the embed providers in priority order",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices(cfg, logger)
		if err != nil {
			return err
		}

		all := svc.registry.All()
		rows := make([][]string, 0, len(all))
		for _, p := range all {
			kinds := make([]string, len(p.Kinds))
			for i, k := range p.Kinds {
				kinds[i] = string(k)
			}
			rows = append(rows, []string{
				strconv.Itoa(p.Priority), p.ID, p.Name, strings.Join(kinds, ", "),
				yesNo(p.SupportsSubtitles), yesNo(p.SupportsQualitySelection),
			})
		}
		return render(cmd, all, []string{"Priority", "ID", "Name", "Kinds", "Subtitles", "Quality"}, rows)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <movie|series|anime> <id>",
	Short: "Resolve playable sources for a title",
	Example: `  vidsource resolve movie 550
  vidsource resolve series 1399 -s 1 -e 2 -o json
  vidsource resolve anime 21 -e 5 --dub`,
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

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout+5*time.Second)
		defer cancel()

		sources := svc.resolver.Resolve(ctx, req)
		if sources == nil {
			sources = []providers.VideoSource{}
		}

		if open, _ := cmd.Flags().GetBool("open"); open && len(sources) > 0 {
			if err := browser.OpenURL(sources[0].URL); err != nil {
				logger.Warn("failed to open browser", "url", sources[0].URL, "error", err)
			}
		}

		rows := make([][]string, 0, len(sources))
		for i, s := range sources {
			rows = append(rows, []string{
				strconv.Itoa(i + 1), s.ID, s.Name, s.Quality, string(s.Kind), s.Provider, s.URL,
			})
		}
		return render(cmd, sources, []string{"#", "ID", "Name", "Quality", "Type", "Provider", "URL"}, rows)
	},
}

var subtitlesCmd = &cobra.Command{
	Use:   "subtitles <movie|series|anime> <id>",
	Short: "List subtitle tracks for a title",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := requestFromArgs(cmd, args)
		if err != nil {
			return err
		}
		svc, err := buildServices(cfg, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Subtitles.Timeout+5*time.Second)
		defer cancel()

		tracks := svc.subtitles.TracksFor(ctx, req)
		if tracks == nil {
			tracks = []subtitles.Track{}
		}

		rows := make([][]string, 0, len(tracks))
		for _, t := range tracks {
			rows = append(rows, []string{t.ID, t.Language, t.CountryCode, t.Provider, t.URL})
		}
		return render(cmd, tracks, []string{"ID", "Language", "Country", "Provider", "URL"}, rows)
	},
}

var captionsCmd = &cobra.Command{
	Use:   "captions <url|file>",
	Short: "Download or read an SRT file and print its cues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cues []subtitles.Cue
		if isRemote(args[0]) {
			svc, err := buildServices(cfg, logger)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Subtitles.Timeout+5*time.Second)
			defer cancel()

			cues, err = svc.subtitles.FetchCues(ctx, args[0])
			if err != nil {
				return err
			}
		} else {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read captions: %w", err)
			}
			cues = subtitles.ParseCaptions(string(data))
		}
		if cues == nil {
			cues = []subtitles.Cue{}
		}

		if srt, _ := cmd.Flags().GetBool("srt"); srt {
			fmt.Fprint(cmd.OutOrStdout(), subtitles.FormatCaptions(cues))
			return nil
		}

		rows := make([][]string, 0, len(cues))
		for i, c := range cues {
			rows = append(rows, []string{
				strconv.Itoa(i + 1), subtitles.FormatClock(c.Start), subtitles.FormatClock(c.End), c.Text,
			})
		}
		return render(cmd, cues, []string{"#", "Start", "End", "Text"}, rows)
	},
}

func init() {
	addOutputFlag(providersCmd)

	addRequestFlags(resolveCmd)
	addOutputFlag(resolveCmd)
	resolveCmd.Flags().Bool("open", false, "open the best source in the browser")

	addRequestFlags(subtitlesCmd)
	addOutputFlag(subtitlesCmd)

	addOutputFlag(captionsCmd)
	captionsCmd.Flags().Bool("srt", false, "print normalized SRT instead of a table")
}

func isRemote(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
