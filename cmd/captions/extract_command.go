package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_captions/internal/engine/store"
	"github.com/anatolykoptev/go_captions/internal/toolutil"
)

func newExtractCommand() *cobra.Command {
	var (
		asJSON  bool
		noCache bool
		save    bool
		in      toolutil.TranscribeInput
	)

	cmd := &cobra.Command{
		Use:   "extract <url|video-id>",
		Short: "Print the caption text of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.URL = args[0]
			useCache := !noCache
			in.UseCache = &useCache

			var st store.Store
			if save {
				st = openStore(cmd)
			}
			out, err := toolutil.NewPipeline(st).Transcribe(cmd.Context(), in)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print video id, language, source and text as JSON")
	cmd.Flags().StringVar(&in.Language, "lang", "", "Preferred caption language code")
	cmd.Flags().StringVar(&in.VssID, "vss", "", "Exact track identifier, e.g. .en or a.en")
	cmd.Flags().StringVar(&in.TranslationLanguage, "tlang", "", "Target language of a translated track")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore cached transcripts")
	cmd.Flags().BoolVar(&save, "save", false, "Save the transcript to the video store")
	return cmd
}
