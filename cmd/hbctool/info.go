package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wippyai/hbctool/hbc"
	"github.com/wippyai/hbctool/pipeline"
)

func (a *app) infoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <bundle>...",
		Short: "Show what a bytecode file's header reveals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.bind(cmd)
			format := a.v.GetString("format")
			if err := checkFormat(format); err != nil {
				return err
			}
			infos := make([]*pipeline.FileInfo, 0, len(args))
			for _, path := range args {
				info, err := pipeline.Info(path)
				if err != nil {
					return err
				}
				infos = append(infos, info)
			}

			w := cmd.OutOrStdout()
			if strings.EqualFold(format, "json") {
				if len(infos) == 1 {
					return writeJSON(w, infos[0], a.v.GetBool("no-color"))
				}
				return writeJSON(w, infos, a.v.GetBool("no-color"))
			}
			for i, info := range infos {
				if i > 0 {
					fmt.Fprintln(w)
				}
				printInfo(w, info)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "text", "output format: text or json")
	return cmd
}

func printInfo(w io.Writer, info *pipeline.FileInfo) {
	fmt.Fprintf(w, "file:     %s\n", info.Path)
	fmt.Fprintf(w, "size:     %s (%s bytes)\n", info.SizeText, humanize.Comma(info.Size))
	fmt.Fprintf(w, "magic:    %s\n", info.Magic)
	fmt.Fprintf(w, "family:   %s\n", info.Guess)
	if info.Version != 0 {
		fmt.Fprintf(w, "version:  %d\n", info.Version)
		if l, ok := hbc.LookupLayout(info.Version); ok {
			fmt.Fprintf(w, "layout:   %s, %d byte header\n", l.Family, l.HeaderSize)
		}
	} else {
		fmt.Fprintf(w, "version:  %s\n", red(info.VersionError))
	}
	fmt.Fprintf(w, "header:   %s\n", faint(info.HeaderHex))
}
