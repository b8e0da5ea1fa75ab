package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/corvid-systems/dermsg/pkg/schema"
	"github.com/corvid-systems/dermsg/pkg/x509cert"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "X.509 certificate operations",
}

var certShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Decode a DER/BER X.509 certificate and print its fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runCertShow,
}

func init() {
	certCmd.AddCommand(certShowCmd)
}

func runCertShow(cmd *cobra.Command, args []string) error {
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

	out := map[string]any{}

	if subj, err := cert.Subject(); err == nil {
		out["subject"] = subj
	}
	if iss, err := cert.Issuer(); err == nil {
		out["issuer"] = iss
	}
	if serial, err := cert.Serial(); err == nil {
		out["serial"] = sexpToJSON(sexpFromBytes(serial))
	}
	if nb, ok, err := cert.Validity(x509cert.NotBefore); err == nil && ok {
		out["not_before"] = nb
	}
	if na, ok, err := cert.Validity(x509cert.NotAfter); err == nil && ok {
		out["not_after"] = na
	}
	if digest, err := cert.DigestAlgo(); err == nil {
		out["digest_algorithm"] = digest
	}
	if pk, err := cert.PublicKey(opts); err == nil {
		out["public_key"] = sexpToJSON(pk)
	}
	if sig, err := cert.SigVal(opts); err == nil {
		out["signature"] = sexpToJSON(sig)
	}
	if bc, ok, err := cert.BasicConstraints(); err == nil && ok {
		out["basic_constraints"] = map[string]any{"is_ca": bc.IsCA, "path_len": bc.PathLen, "has_path_len": bc.HasPathLen}
	}
	if ku, ok, err := cert.KeyUsage(); err == nil && ok {
		out["key_usage"] = uint16(ku)
	}
	if skid, ok, err := cert.SubjectKeyID(); err == nil && ok {
		out["subject_key_id"] = sexpToJSON(sexpFromBytes(skid))
	}
	if akid, ok, err := cert.AuthorityKeyID(); err == nil && ok {
		out["authority_key_id"] = sexpToJSON(sexpFromBytes(akid))
	}
	if sans, ok, err := cert.SubjectAltNames(); err == nil && ok {
		names := make([]string, len(sans))
		for i, n := range sans {
			names[i] = n.Value
		}
		out["subject_alt_names"] = names
	}

	return writeValue(cmd.OutOrStdout(), out)
}
