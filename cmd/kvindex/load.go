package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/kvindex/dn"
	"github.com/arthur-debert/kvindex/kv"
	"github.com/arthur-debert/kvindex/record"
)

var loadCmd = &cobra.Command{
	Use:   "load <file.yaml>",
	Short: "Bulk-index entries described in a YAML fixture file",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

// loadFile is the YAML shape a load fixture takes.
type loadFile struct {
	Records []loadRecord `yaml:"records"`
}

type loadRecord struct {
	DN       string              `yaml:"dn"`
	Elements []loadRecordElement `yaml:"elements"`
}

type loadRecordElement struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

func runLoad(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("kvindex: read %s: %w", args[0], err)
	}
	var lf loadFile
	if err := yaml.Unmarshal(raw, &lf); err != nil {
		return fmt.Errorf("kvindex: parse %s: %w", args[0], err)
	}

	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("kvindex: open engine: %w", err)
	}
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("kvindex: open store: %w", err)
	}
	packer := record.JSONPacker{}

	if err := e.TransactionStart(); err != nil {
		return fmt.Errorf("kvindex: transaction start: %w", err)
	}

	loaded := 0
	for _, lr := range lf.Records {
		rec := record.Record{DN: lr.DN}
		if cfg.GetBool("guid-mode") {
			id := uuid.New()
			rec.GUID = id[:]
		}
		for _, le := range lr.Elements {
			var values [][]byte
			for _, v := range le.Values {
				values = append(values, []byte(v))
			}
			rec.Elements = append(rec.Elements, record.Element{Name: le.Name, Values: values})
		}

		backingRaw, err := packer.Pack(&rec)
		if err != nil {
			e.TransactionCancel()
			return fmt.Errorf("kvindex: pack %s: %w", rec.DN, err)
		}
		target, err := dn.Parse(rec.DN)
		if err != nil {
			e.TransactionCancel()
			return fmt.Errorf("kvindex: parse DN %q: %w", rec.DN, err)
		}
		key := "DN=" + target.Casefold()
		if cfg.GetBool("guid-mode") {
			key = fmt.Sprintf("GUID=%x", rec.GUID)
		}
		if err := store.Put(key, backingRaw, kv.Replace); err != nil {
			e.TransactionCancel()
			return fmt.Errorf("kvindex: store %s: %w", rec.DN, err)
		}

		if err := e.AddNew(rec); err != nil {
			e.TransactionCancel()
			return fmt.Errorf("kvindex: index %s: %w (%s)", rec.DN, err, e.LastError())
		}
		loaded++
	}

	if err := e.TransactionCommit(); err != nil {
		return fmt.Errorf("kvindex: commit: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d record(s)\n", loaded)
	return nil
}
