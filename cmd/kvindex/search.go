package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/kvindex/filter"
	"github.com/arthur-debert/kvindex/index"
	"github.com/arthur-debert/kvindex/record"
)

var (
	searchBase  string
	searchScope string
	searchAttrs string
)

var searchCmd = &cobra.Command{
	Use:   "search <filter>",
	Short: "Run an indexed search and print matching entries",
	Long:  `Filter syntax is a small LDAP-style subset: "(cn=alice)", "(&(cn=alice)(sn=smith))", "(|(cn=a)(cn=b))", "(!(cn=a))".`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchBase, "base", "", "base DN (required)")
	searchCmd.Flags().StringVar(&searchScope, "scope", "subtree", "search scope: base, one, or subtree")
	searchCmd.Flags().StringVar(&searchAttrs, "attrs", "", "comma-separated attribute list to project (default: all)")
	_ = searchCmd.MarkFlagRequired("base")
}

func parseScope(s string) (index.Scope, error) {
	switch s {
	case "base":
		return index.ScopeBase, nil
	case "one":
		return index.ScopeOneLevel, nil
	case "subtree":
		return index.ScopeSubtree, nil
	default:
		return 0, fmt.Errorf("kvindex: unknown scope %q (want base, one, or subtree)", s)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	tree, err := filter.Parse(args[0])
	if err != nil {
		return fmt.Errorf("kvindex: parse filter: %w", err)
	}
	scope, err := parseScope(searchScope)
	if err != nil {
		return err
	}

	var attrs []string
	if searchAttrs != "" {
		attrs = strings.Split(searchAttrs, ",")
	}

	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("kvindex: open engine: %w", err)
	}

	ctx := index.SearchContext{Base: searchBase, Scope: scope, Tree: tree, Attrs: attrs}
	count, err := e.SearchIndexed(ctx, func(rec *record.Record) (bool, error) {
		printRecord(cmd, rec)
		return false, nil
	})
	if errors.Is(err, index.ErrNotIndexed) {
		return fmt.Errorf("kvindex: filter is not indexed; the caller must fall back to a full scan")
	}
	if err != nil {
		return fmt.Errorf("kvindex: search: %w (%s)", err, e.LastError())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %d match(es)\n", count)
	return nil
}

func printRecord(cmd *cobra.Command, rec *record.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dn: %s\n", rec.DN)
	for _, el := range rec.Elements {
		for _, v := range el.Values {
			fmt.Fprintf(out, "%s: %s\n", el.Name, v)
		}
	}
	fmt.Fprintln(out)
}
