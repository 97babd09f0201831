package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/spf13/cobra"
)

var postCmd = &cobra.Command{
	Use:   "post [text]",
	Short: "Publish a social post event",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store, facade, id, err := openNode(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		content := []byte(strings.Join(args, " "))
		ctx := context.Background()
		parentPrev, _, err := facade.GetSelfCurrentHead(ctx)
		if err != nil {
			return fmt.Errorf("look up current head: %w", err)
		}

		ve, vec, err := signEvent(id, event.KindSocialPost, parentPrev, ids.ShortEventId{}, content)
		if err != nil {
			return err
		}

		if _, err := facade.ProcessEventWithContent(ctx, ve, vec); err != nil {
			return fmt.Errorf("store post: %w", err)
		}

		fmt.Printf("Posted %s\n", ve.ShortID().String())
		return nil
	},
}
