package main

import (
	"context"
	"fmt"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/spf13/cobra"
)

var followCmd = &cobra.Command{
	Use:   "follow [rostra-id]",
	Short: "Follow another node's author id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := ids.ParseRostraId(args[0])
		if err != nil {
			return fmt.Errorf("parse rostra id: %w", err)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, facade, id, err := openNode(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		content := event.EncodeFollow(event.FollowPayload{Target: target})

		ctx := context.Background()
		parentPrev, _, err := facade.GetSelfCurrentHead(ctx)
		if err != nil {
			return fmt.Errorf("look up current head: %w", err)
		}

		ve, vec, err := signEvent(id, event.KindFollow, parentPrev, ids.ShortEventId{}, content)
		if err != nil {
			return err
		}
		if _, err := facade.ProcessEventWithContent(ctx, ve, vec); err != nil {
			return fmt.Errorf("store follow: %w", err)
		}

		fmt.Printf("Now following %s\n", target.String())
		return nil
	},
}

var unfollowCmd = &cobra.Command{
	Use:   "unfollow [rostra-id]",
	Short: "Unfollow another node's author id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := ids.ParseRostraId(args[0])
		if err != nil {
			return fmt.Errorf("parse rostra id: %w", err)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, facade, id, err := openNode(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		content := event.EncodeUnfollow(event.UnfollowPayload{Target: target})

		ctx := context.Background()
		parentPrev, _, err := facade.GetSelfCurrentHead(ctx)
		if err != nil {
			return fmt.Errorf("look up current head: %w", err)
		}

		ve, vec, err := signEvent(id, event.KindUnfollow, parentPrev, ids.ShortEventId{}, content)
		if err != nil {
			return err
		}
		if _, err := facade.ProcessEventWithContent(ctx, ve, vec); err != nil {
			return fmt.Errorf("store unfollow: %w", err)
		}

		fmt.Printf("Unfollowed %s\n", target.String())
		return nil
	},
}
