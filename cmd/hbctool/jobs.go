package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/wippyai/hbctool/pipeline"
)

func (a *app) disasmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm <bundle>...",
		Short: "Disassemble bytecode files into assembly directories",
		Long: `Disassemble decodes each bytecode file and writes its assembly in directory
form: metadata.hasm, strings.hasm, literals.hasm and one file per function
under functions/.

With a single input the assembly goes to --output, or <name>_hasm next to
the input. With several inputs each one gets <output>/<name>.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.bind(cmd)
			opts := pipeline.Options{
				IgnoreHash: a.v.GetBool("ignore-hash"),
				Force:      a.v.GetBool("force"),
			}
			return a.runJobs(cmd, plan(pipeline.KindDisassemble, args, a.v.GetString("output"), opts))
		},
	}
	f := cmd.Flags()
	f.StringP("output", "o", "", "output directory")
	f.Bool("ignore-hash", false, "accept files whose content hash does not match")
	f.BoolP("force", "f", false, "overwrite a non-empty output directory")
	f.IntP("jobs", "j", 0, "parallel jobs (default GOMAXPROCS)")
	return cmd
}

func (a *app) asmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asm <assembly>...",
		Short: "Assemble directories or .hasm files into bytecode",
		Long: `Assemble parses an assembly directory or single .hasm file and writes
` + pipeline.BundleName + ` into the output directory.

The bytecode version declared by the assembly is used unless --target is
given; targeting another version fails if the module uses anything that
version cannot represent.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.bind(cmd)
			opts := pipeline.Options{Version: a.v.GetUint32("target")}
			return a.runJobs(cmd, plan(pipeline.KindAssemble, args, a.v.GetString("output"), opts))
		},
	}
	f := cmd.Flags()
	f.StringP("output", "o", "", "output directory")
	f.Uint32P("target", "t", 0, "target bytecode version")
	f.IntP("jobs", "j", 0, "parallel jobs (default GOMAXPROCS)")
	return cmd
}

// plan maps inputs to batch jobs and their output directories.
func plan(kind pipeline.Kind, inputs []string, output string, opts pipeline.Options) []pipeline.Job {
	suffix := "_hasm"
	if kind == pipeline.KindAssemble {
		suffix = "_bundle"
	}
	jobs := make([]pipeline.Job, len(inputs))
	for i, in := range inputs {
		in = filepath.Clean(in)
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		dir := output
		switch {
		case output == "":
			dir = filepath.Join(filepath.Dir(in), base+suffix)
		case len(inputs) > 1:
			dir = filepath.Join(output, base)
		}
		jobs[i] = pipeline.Job{Kind: kind, Input: in, OutputDir: dir, Options: opts}
	}
	return jobs
}

func (a *app) runJobs(cmd *cobra.Command, jobs []pipeline.Job) error {
	w := cmd.OutOrStdout()
	var mu sync.Mutex
	for i := range jobs {
		prefix := ""
		if len(jobs) > 1 {
			prefix = filepath.Base(jobs[i].Input) + ": "
		}
		jobs[i].Options.Progress = func(line string) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintln(w, mark(prefix, line))
		}
	}

	results, err := pipeline.Batch(runCtx(cmd), jobs, a.v.GetInt("jobs"))
	if len(jobs) > 1 {
		ok := 0
		for _, r := range results {
			if r.Status == pipeline.StatusSuccess {
				ok++
			}
		}
		fmt.Fprintf(w, "%d of %d succeeded\n", ok, len(jobs))
	}
	return err
}
