// Command dercms inspects X.509 certificates and CMS containers without
// building a trust path: it decodes, renders the symbolic key/signature
// expressions, and prints what it found.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dercms",
	Short: "Decode X.509 certificates and CMS containers",
	Long: `dercms decodes BER/DER-encoded X.509 certificates and CMS (RFC 5652)
containers, rendering their key and signature material as symbolic
s-expressions instead of re-deriving them with a second encoder.

Examples:
  dercms cert show server.crt
  dercms cms info message.p7s
  dercms keyinfo sexp server.crt --field public-key`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a dercms.yaml config file")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "json", "output format: json or cbor")

	rootCmd.AddCommand(certCmd)
	rootCmd.AddCommand(cmsCmd)
	rootCmd.AddCommand(keyinfoCmd)
}
