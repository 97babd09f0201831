package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Manage the local node identity",
}

var idNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate (or show) the local node's identity",
	Long: `Generates an Ed25519 keypair and persists it sealed in the event
database if one does not already exist, then prints the resulting
RostraId. Running this again on an existing data directory just prints
the existing identity.`,
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

		fmt.Println("Rostra identity ready")
		fmt.Printf("  RostraId: %s\n", id.RostraId.String())
		fmt.Printf("  Data directory: %s\n", cfg.DataDir)
		return nil
	},
}

func init() {
	idCmd.AddCommand(idNewCmd)
}
