package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corvid-systems/dermsg/pkg/keyinfo"
	"github.com/corvid-systems/dermsg/pkg/schema"
	"github.com/corvid-systems/dermsg/pkg/sexp"
	"github.com/corvid-systems/dermsg/pkg/x509cert"
)

var keyinfoField string

var keyinfoCmd = &cobra.Command{
	Use:   "keyinfo",
	Short: "Render a certificate's key or signature material as a symbolic s-expression",
}

var keyinfoSexpCmd = &cobra.Command{
	Use:   "sexp [file]",
	Short: "Print a certificate's public-key or signature s-expression",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeyinfoSexp,
}

func init() {
	keyinfoSexpCmd.Flags().StringVar(&keyinfoField, "field", "public-key", "which value to render: public-key or signature")
	keyinfoCmd.AddCommand(keyinfoSexpCmd)
}

func runKeyinfoSexp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}
	opts, err := keyinfoOptions(cfg)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	reg, err := schema.NewRegistry()
	if err != nil {
		return err
	}
	cert, err := x509cert.ParseBytes(reg, data)
	if err != nil {
		return err
	}

	var expr sexp.Expr
	switch keyinfoField {
	case "public-key":
		expr, err = cert.PublicKey(opts)
	case "signature":
		expr, err = cert.SigVal(opts)
	default:
		return fmt.Errorf("unknown --field %q (want public-key or signature)", keyinfoField)
	}
	if err != nil {
		return err
	}

	return writeValue(cmd.OutOrStdout(), sexpToJSON(expr))
}
