package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/hbctool/hbc"
)

type versionRow struct {
	Version    uint32   `json:"version"`
	Family     string   `json:"family"`
	HeaderSize int      `json:"header_size"`
	Hash       string   `json:"hash"`
	Opcodes    int      `json:"opcodes"`
	Features   []string `json:"features"`
	Sections   []string `json:"sections"`
}

func versionRows() []versionRow {
	var rows []versionRow
	for _, v := range hbc.SupportedVersions() {
		l, _ := hbc.LookupLayout(v)
		row := versionRow{
			Version:    v,
			Family:     l.Family.String(),
			HeaderSize: l.HeaderSize,
			Hash:       "xxh3-128",
			Opcodes:    l.Opcodes().Len(),
		}
		if l.Family == hbc.FamilyModern {
			row.Hash = "sha1"
		}
		f := l.Features
		for _, feat := range []struct {
			on   bool
			name string
		}{
			{f.DebugInfo, "debug-info"},
			{f.ExceptionHandlers, "exception-handlers"},
			{f.ObjectPools, "object-pools"},
			{f.BigInt, "bigint"},
		} {
			if feat.on {
				row.Features = append(row.Features, feat.name)
			}
		}
		for _, s := range l.Sections {
			row.Sections = append(row.Sections, s.String())
		}
		rows = append(rows, row)
	}
	return rows
}

func (a *app) versionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List supported bytecode versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.bind(cmd)
			format := a.v.GetString("format")
			if err := checkFormat(format); err != nil {
				return err
			}
			rows := versionRows()
			w := cmd.OutOrStdout()
			if strings.EqualFold(format, "json") {
				return writeJSON(w, rows, a.v.GetBool("no-color"))
			}
			fmt.Fprintf(w, "%-8s %-8s %-7s %-9s %-8s %s\n", "VERSION", "FAMILY", "HEADER", "HASH", "OPCODES", "FEATURES")
			for _, r := range rows {
				feats := strings.Join(r.Features, ",")
				if feats == "" {
					feats = "-"
				}
				fmt.Fprintf(w, "%-8d %-8s %-7d %-9s %-8d %s\n", r.Version, r.Family, r.HeaderSize, r.Hash, r.Opcodes, feats)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "text", "output format: text or json")
	return cmd
}
