package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_captions/internal/engine/page"
)

func newRecordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "record <url|video-id>",
		Short: "Show the saved record of a video as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := page.ParseVideoID(args[0])
			if id == "" {
				return errors.New("not a YouTube video URL or id")
			}
			st := openStore(cmd)
			if st == nil {
				return errors.New("video store unavailable")
			}
			rec, err := st.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd, rec)
		},
	}
}
