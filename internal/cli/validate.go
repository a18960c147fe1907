package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mrec/internal/codec"
	"github.com/mesh-intelligence/mrec/pkg/record"
	"github.com/mesh-intelligence/mrec/pkg/types"
)

func newValidateCmd() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate records against the schema",
		Long: `Validate each record file against the bundled schema and check its
structure. External data files are not read unless --verify is given, in
which case every file is read and its checksum compared.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, verify)
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "also read external data files and check their checksums")
	return cmd
}

type validateResult struct {
	Path       string   `json:"path"`
	Valid      bool     `json:"valid"`
	Error      string   `json:"error,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string, verify bool) error {
	var (
		results []validateResult
		first   error
		failed  int
	)
	for _, path := range args {
		_, err := record.FromFile(path, record.WithLazyLoading(!verify))
		res := validateResult{Path: path, Valid: err == nil}
		if err != nil {
			failed++
			if first == nil {
				first = err
			}
			res.Error = err.Error()
			var verr *types.ValidationError
			if errors.As(err, &verr) {
				for _, v := range verr.Violations {
					res.Violations = append(res.Violations, v.String())
				}
			}
			slog.Debug("validate: failed", "path", path, "error", err)
		}
		results = append(results, res)
	}

	out := cmd.OutOrStdout()
	if flags.jsonMode {
		if err := printJSON(out, results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Valid {
				fmt.Fprintf(out, "ok       %s\n", res.Path)
				continue
			}
			if len(res.Violations) == 0 {
				fmt.Fprintf(out, "invalid  %s: %s\n", res.Path, res.Error)
				continue
			}
			fmt.Fprintf(out, "invalid  %s\n", res.Path)
			for _, v := range res.Violations {
				fmt.Fprintf(out, "  %s\n", v)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d records invalid: %w", failed, len(args), first)
	}
	return nil
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check the checksums of all external data files of a record",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}
}

type verifyResult struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	File     string `json:"file"`
	MD5      string `json:"md5"`
	Samples  int    `json:"samples"`
	Verified bool   `json:"verified"`
	Error    string `json:"error,omitempty"`
}

// runVerify stops at the first external file that fails to decode.
func runVerify(cmd *cobra.Command, args []string) error {
	r, err := record.FromFile(args[0], record.WithLazyLoading(true))
	if err != nil {
		return err
	}

	type target struct {
		kind, name string
		ref        types.ExternalRef
	}
	var targets []target
	for _, g := range r.SamplingGrids() {
		if ref, ok := g.Stored.(types.ExternalRef); ok {
			targets = append(targets, target{"grid", g.Name, ref})
		}
	}
	for _, ch := range r.DataChannels() {
		if ref, ok := ch.Stored.(types.ExternalRef); ok {
			targets = append(targets, target{"channel", ch.Name, ref})
		}
	}

	var (
		results []verifyResult
		failure error
	)
	for _, t := range targets {
		res := verifyResult{Kind: t.kind, Name: t.name, File: t.ref.RelativeFilePath, MD5: t.ref.MD5}
		values, err := codec.Decode(t.ref, r.BaseDir())
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			failure = fmt.Errorf("%s %q: %w", t.kind, t.name, err)
			break
		}
		res.Samples = len(values)
		res.Verified = true
		results = append(results, res)
	}

	out := cmd.OutOrStdout()
	if flags.jsonMode {
		if err := printJSON(out, results); err != nil {
			return err
		}
	} else {
		w := newTable(out)
		fprintRow(w, "STATUS", "KIND", "NAME", "FILE", "SAMPLES")
		for _, res := range results {
			status, samples := "ok", fmt.Sprint(res.Samples)
			if !res.Verified {
				status, samples = "FAIL", "-"
			}
			fprintRow(w, status, res.Kind, res.Name, res.File, samples)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if failure == nil {
			fmt.Fprintf(out, "%d external files verified\n", len(results))
		}
	}
	return failure
}
