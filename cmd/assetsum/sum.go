package main

import (
	"fmt"
	"io"
	"os"

	"github.com/assetsum/assetsum/internal/crc"
	"github.com/assetsum/assetsum/internal/manifest"
	"github.com/spf13/cobra"
)

func newSumCmd() *cobra.Command {
	var (
		strs   []string
		length int
	)

	cmd := &cobra.Command{
		Use:   "sum [file...]",
		Short: "Print CRC-32 checksums of files, strings or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := cmd.Flags().Changed("length")
			if prefix && length < 0 {
				return fmt.Errorf("--length must not be negative")
			}

			for _, s := range strs {
				sum, err := sumBytes([]byte(s), prefix, length)
				if err != nil {
					return fmt.Errorf("%q: %w", s, err)
				}
				printf(cmd, "%08x  %q\n", sum, s)
			}

			if len(args) == 0 && len(strs) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				sum, err := sumBytes(data, prefix, length)
				if err != nil {
					return fmt.Errorf("stdin: %w", err)
				}
				printf(cmd, "%08x  -\n", sum)
			}

			for _, path := range args {
				sum, err := sumFile(path, prefix, length)
				if err != nil {
					return err
				}
				printf(cmd, "%08x  %s\n", sum, path)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&strs, "string", "s", nil, "checksum a literal string (repeatable)")
	cmd.Flags().IntVarP(&length, "length", "n", 0, "only checksum the first n bytes of each input")
	return cmd
}

func sumBytes(data []byte, prefix bool, length int) (uint32, error) {
	if !prefix {
		return crc.Sum(data), nil
	}
	if length > len(data) {
		return 0, fmt.Errorf("length %d exceeds input size %d", length, len(data))
	}
	return crc.Checksum(data, length), nil
}

func sumFile(path string, prefix bool, length int) (uint32, error) {
	if !prefix {
		a, err := manifest.HashFile(path)
		if err != nil {
			return 0, err
		}
		return a.Checksum, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	sum, err := sumBytes(data, prefix, length)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return sum, nil
}
