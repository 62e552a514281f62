// Command storagegen parses a Go source file containing struct fields
// tagged with `storage:"mapping(...)"` or `storage:"scalar(...)"` (plus a
// `slot:"N"` index) and emits a "_storage_gen.go" file of typed slot-key
// accessors alongside it. See package storagegen.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rwasmvm/rwasmvm/storagegen"
)

func main() {
	var pkgName string
	cmd := &cobra.Command{
		Use:   "storagegen <input.go>",
		Short: "Generate typed storage slot accessors from storage struct tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			src, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("reading %s: %w", input, err)
			}

			decls, err := storagegen.Parse(input, src)
			if err != nil {
				return err
			}
			if len(decls) == 0 {
				return fmt.Errorf("no storage-tagged fields found in %s", input)
			}

			if pkgName == "" {
				pkgName = inferPackage(src)
			}

			out, err := storagegen.Generate(pkgName, decls)
			if err != nil {
				return err
			}

			outPath := strings.TrimSuffix(input, filepath.Ext(input)) + "_storage_gen.go"
			if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			fmt.Println(outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&pkgName, "package", "", "output package name (defaults to the input file's package clause)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inferPackage(src []byte) string {
	const marker = "package "
	i := strings.Index(string(src), marker)
	if i < 0 {
		return "main"
	}
	rest := string(src)[i+len(marker):]
	end := strings.IndexAny(rest, " \t\r\n")
	if end < 0 {
		return strings.TrimSpace(rest)
	}
	return rest[:end]
}
