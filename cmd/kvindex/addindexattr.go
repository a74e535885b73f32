package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/kvindex/kv"
	"github.com/arthur-debert/kvindex/record"
)

const controlRecordDN = "@INDEXLIST"

var addIndexAttrCmd = &cobra.Command{
	Use:   "add-index-attr <attribute>",
	Short: "Add an attribute to @INDEXLIST's @IDXATTR set",
	Long:  "Adds attribute to the control record's indexed-attribute list. Run reindex afterward so existing entries gain index coverage for it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddIndexAttr,
}

func runAddIndexAttr(cmd *cobra.Command, args []string) error {
	attr := args[0]
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("kvindex: open store: %w", err)
	}
	packer := record.JSONPacker{}

	ctrl := &record.Record{DN: controlRecordDN}
	raw, err := store.Get(controlRecordDN)
	if err == nil {
		ctrl, err = packer.Unpack(raw)
		if err != nil {
			return fmt.Errorf("kvindex: unpack %s: %w", controlRecordDN, err)
		}
	} else if !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("kvindex: load %s: %w", controlRecordDN, err)
	}

	return writeAddIndexAttr(store, packer, ctrl, attr, cmd)
}

func writeAddIndexAttr(store kv.Store, packer record.JSONPacker, ctrl *record.Record, attr string, cmd *cobra.Command) error {
	idx := -1
	for i, el := range ctrl.Elements {
		if el.Name == "@IDXATTR" {
			idx = i
			break
		}
	}
	if idx == -1 {
		ctrl.Elements = append(ctrl.Elements, record.Element{Name: "@IDXATTR"})
		idx = len(ctrl.Elements) - 1
	}
	for _, v := range ctrl.Elements[idx].Values {
		if string(v) == attr {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is already indexed\n", attr)
			return nil
		}
	}
	ctrl.Elements[idx].Values = append(ctrl.Elements[idx].Values, []byte(attr))

	raw, err := packer.Pack(ctrl)
	if err != nil {
		return fmt.Errorf("kvindex: pack %s: %w", controlRecordDN, err)
	}
	if err := store.Put(controlRecordDN, raw, kv.Replace); err != nil {
		return fmt.Errorf("kvindex: write %s: %w", controlRecordDN, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %s to @IDXATTR; run 'kvindex reindex' to backfill existing entries\n", attr)
	return nil
}
