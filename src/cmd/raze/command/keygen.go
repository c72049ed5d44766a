package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/razeblock/raze/src/crypto"
	"github.com/razeblock/raze/src/raze"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a voting key in the data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		keyfile := crypto.NewKeyFile(conf.Keyfile())

		if _, err := keyfile.ReadKey(); err == nil {
			return fmt.Errorf("a key already exists in %s", conf.Keyfile())
		}

		key, err := crypto.GenerateKeyPair()
		if err != nil {
			return err
		}
		if err := keyfile.WriteKey(key); err != nil {
			return err
		}

		fmt.Printf("Account: %s\n", raze.AccountFromKey(key))
		fmt.Printf("Keyfile: %s\n", conf.Keyfile())

		return nil
	},
}
