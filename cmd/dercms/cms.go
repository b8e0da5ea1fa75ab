package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/corvid-systems/dermsg/pkg/berio"
	"github.com/corvid-systems/dermsg/pkg/cms"
	"github.com/corvid-systems/dermsg/pkg/keyinfo"
	"github.com/corvid-systems/dermsg/pkg/schema"
)

var cmsCmd = &cobra.Command{
	Use:   "cms",
	Short: "CMS (RFC 5652) container operations",
}

var cmsInfoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Decode a CMS SignedData or EnvelopedData container and print its structure",
	Args:  cobra.ExactArgs(1),
	RunE:  runCmsInfo,
}

func init() {
	cmsCmd.AddCommand(cmsInfoCmd)
}

func runCmsInfo(cmd *cobra.Command, args []string) error {
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
	src := berio.NewBytesReader(data)

	ci, err := cms.ParseContentInfo(src)
	if err != nil {
		return err
	}

	switch ci.ContentOID {
	case cms.OIDSignedData:
		return infoSignedData(cmd, src, ci, opts, cfg)
	case cms.OIDEnvelopedData:
		return infoEnvelopedData(cmd, src, opts)
	default:
		return writeValue(cmd.OutOrStdout(), map[string]any{"content_type": ci.ContentOID})
	}
}

func infoSignedData(cmd *cobra.Command, src berio.Reader, outer cms.ContentInfo, opts *keyinfo.Options, cfg Config) error {
	part1, err := cms.ParseSignedDataPart1(src)
	if err != nil {
		return err
	}
	if part1.EncapContent.HasContent && !part1.EncapContent.Indefinite {
		if _, err := src.Read(int(part1.EncapContent.InnerLength)); err != nil {
			return err
		}
	}
	if err := part1.EncapContent.Close(src); err != nil {
		return err
	}

	reg, err := schema.NewRegistry()
	if err != nil {
		return err
	}
	part2, err := cms.ParseSignedDataPart2(reg, src, part1, cms.ParseSignedDataPart2Options{SkipCRLs: cfg.SkipCRLs})
	if err != nil {
		return err
	}
	if err := outer.Close(src); err != nil {
		return err
	}

	signers := make([]map[string]any, 0, len(part2.SignerInfosRoot.Children))
	for _, node := range part2.SignerInfosRoot.Children {
		view, err := cms.ParseSignerInfo(node, part2.SignerInfosImage)
		if err != nil {
			return err
		}
		entry := map[string]any{
			"version":             view.Version,
			"digest_algorithm":    view.DigestAlgoOID,
			"signature_algorithm": view.SignatureAlgoOID,
		}
		if view.IssuerSerial != nil {
			entry["issuer"] = view.IssuerSerial.Issuer
		}
		if sig, err := view.SigVal(opts); err == nil {
			entry["signature"] = sexpToJSON(sig)
		}
		signers = append(signers, entry)
	}

	out := map[string]any{
		"content_type":      outer.ContentOID,
		"version":           part1.Version,
		"digest_algorithms": part1.DigestAlgoOIDs,
		"num_certificates":  len(part2.Certificates),
		"signers":           signers,
	}
	return writeValue(cmd.OutOrStdout(), out)
}

func infoEnvelopedData(cmd *cobra.Command, src berio.Reader, opts *keyinfo.Options) error {
	reg, err := schema.NewRegistry()
	if err != nil {
		return err
	}
	part1, err := cms.ParseEnvelopedDataPart1(reg, src)
	if err != nil {
		return err
	}
	// The ciphertext itself is of no interest to "info" (no key is on
	// hand to decrypt it); a definite-length encryptedContent is skipped
	// so Close can consume the frame's EOC octets. An indefinite-length
	// one is left unconsumed — info has already read everything it needs.
	if part1.EncryptedContent.Present && !part1.EncryptedContent.Indefinite {
		if _, err := src.Read(int(part1.EncryptedContent.Length)); err != nil {
			return err
		}
	}
	if !part1.EncryptedContent.Indefinite {
		if err := part1.Close(src); err != nil {
			return err
		}
	}

	recipients := make([]map[string]any, 0, len(part1.RecipientInfosRoot.Children))
	for _, node := range part1.RecipientInfosRoot.Children {
		view, err := cms.ParseRecipientInfo(node, part1.RecipientInfosImage)
		if err != nil {
			return err
		}
		entry := map[string]any{
			"key_encryption_algorithm": view.KeyEncryptionOID,
		}
		switch view.Kind {
		case cms.RecipientKeyTrans:
			entry["kind"] = "ktri"
			if view.IssuerSerial != nil {
				entry["issuer"] = view.IssuerSerial.Issuer
			}
			if encVal, err := view.EncVal(opts); err == nil {
				entry["enc_val"] = sexpToJSON(encVal)
			}
		case cms.RecipientKeyAgree:
			entry["kind"] = "kari"
			entry["recipients"] = len(view.RecipientEncryptedKeys)
			if len(view.RecipientEncryptedKeys) > 0 {
				if encVal, err := view.EncValAt(0, opts); err == nil {
					entry["enc_val_0"] = sexpToJSON(encVal)
				}
			}
		}
		recipients = append(recipients, entry)
	}

	out := map[string]any{
		"version":                part1.Version,
		"content_encryption":     part1.ContentEncryptionOID,
		"content_encryption_aes": cms.IsContentEncryptionAES(part1.ContentEncryptionOID),
		"recipients":             recipients,
	}
	return writeValue(cmd.OutOrStdout(), out)
}
