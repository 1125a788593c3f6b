package cmd

import (
	"fmt"

	"guildsync/core/signature"

	"github.com/spf13/cobra"
)

// keygenCmd mints a new HMAC key for a remote system row.
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an HMAC key for a new remote system",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := signature.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(keygenCmd)
}
