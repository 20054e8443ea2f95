package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lexpipe/internal/canonical"
)

func newCanonCommand(ctx *commandContext) *cobra.Command {
	var (
		aliasPath   string
		catalogPath string
	)

	cmd := &cobra.Command{
		Use:   "canon <title>...",
		Short: "Canonicalize cited-work titles",
		Long: `Canon resolves raw citation titles to their stable identity the same way
the normalize stage does, which makes it useful for checking alias map and
catalog entries before a run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if aliasPath == "" {
				aliasPath = cfg.Paths.AliasMapPath
			}
			if catalogPath == "" {
				catalogPath = cfg.Paths.CatalogPath
			}

			aliases, err := canonical.LoadAliasMap(aliasPath)
			if err != nil {
				return err
			}
			catalog, err := canonical.LoadCatalog(catalogPath)
			if err != nil {
				return err
			}

			options := []canonical.Option{canonical.WithAliases(aliases)}
			if cfg.Canonical.FuzzyEnabled {
				options = append(options, canonical.WithCatalog(catalog, cfg.Canonical.FuzzyThreshold))
			}
			canonicalizer := canonical.New(options...)

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(args))
			for _, raw := range args {
				result, err := canonicalizer.Canonicalize(raw)
				if err != nil {
					return fmt.Errorf("canonicalize %q: %w", raw, err)
				}
				rows = append(rows, []string{
					result.Raw,
					result.DisplayTitle,
					string(result.Match),
					result.StableKey[:16],
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Raw", "Canonical", "Match", "Key"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&aliasPath, "alias-map", "", "Alias map TOML path (default: configured path)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Title catalog TOML path (default: configured path)")

	return cmd
}
