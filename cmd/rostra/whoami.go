package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the local node's RostraId",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store, _, id, err := openNode(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Println(id.RostraId.String())
		return nil
	},
}
