package cli

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goProgIndex/internal/codec/record"
)

var (
	codecHeader int
	codecBase64 bool
)

var encodeCmd = &cobra.Command{
	Use:         "encode NAME MESSAGE",
	Short:       "Encode a record as account data",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := record.EncodeAccount(args[0], args[1], codecHeader)
		if err != nil {
			return err
		}
		if codecBase64 {
			fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(data))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
		}
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:         "decode DATA",
	Short:       "Decode hex (or --base64) account data into a record",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.TrimSpace(args[0])

		var data []byte
		var err error
		if codecBase64 {
			data, err = base64.StdEncoding.DecodeString(input)
		} else {
			data, err = hex.DecodeString(strings.TrimPrefix(input, "0x"))
		}
		if err != nil {
			return fmt.Errorf("invalid input: %w", err)
		}

		rec, err := record.DecodeAccount(data, codecHeader)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("no record: account data is empty")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd, decodeCmd)

	for _, c := range []*cobra.Command{encodeCmd, decodeCmd} {
		c.Flags().IntVar(&codecHeader, "header", 1, "account header bytes before the record")
		c.Flags().BoolVar(&codecBase64, "base64", false, "use base64 instead of hex")
	}
}
