package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/assetsum/assetsum/internal/codegen"
	"github.com/assetsum/assetsum/internal/crc"
	"github.com/spf13/cobra"
)

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate Go source with precomputed checksums",
	}
	cmd.AddCommand(newGenTableCmd(), newGenIDsCmd())
	return cmd
}

func newGenTableCmd() *cobra.Command {
	var (
		out     string
		pkg     string
		varName string
		poly    string
		build   string
	)

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Generate a CRC-32 lookup table literal",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := strconv.ParseUint(poly, 0, 32)
			if err != nil {
				return fmt.Errorf("invalid polynomial %q: %w", poly, err)
			}

			var buf bytes.Buffer
			if err := codegen.RenderTable(&buf, pkg, varName, uint32(p), build); err != nil {
				return err
			}
			return writeOutput(cmd, out, buf.Bytes())
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&pkg, "package", "crc", "package name of the generated file")
	cmd.Flags().StringVar(&varName, "var", "ieeeTable", "name of the generated variable")
	cmd.Flags().StringVar(&poly, "poly", fmt.Sprintf("%#x", crc.Polynomial), "reflected polynomial")
	cmd.Flags().StringVar(&build, "build", "", "build constraint for the generated file")
	return cmd
}

func newGenIDsCmd() *cobra.Command {
	var (
		out   string
		input string
	)

	cmd := &cobra.Command{
		Use:   "ids",
		Short: "Generate asset identity constants from a YAML list",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := codegen.LoadIDs(input)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := codegen.RenderIDs(&buf, f); err != nil {
				return err
			}
			return writeOutput(cmd, out, buf.Bytes())
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&input, "ids", "i", "ids.yaml", "YAML list of asset names and paths")
	return cmd
}

func writeOutput(cmd *cobra.Command, path string, src []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(src)
		return err
	}
	if err := os.WriteFile(path, src, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
