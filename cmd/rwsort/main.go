// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Rwsort reads flow records from files or standard input and writes
// them sorted on one or more user-selected fields.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/data"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hrbrmstr/silk/flow"
	"github.com/hrbrmstr/silk/flowio"
	"github.com/hrbrmstr/silk/flowsort"
	"github.com/hrbrmstr/silk/plugin"
)

type options struct {
	fields      string
	reverse     bool
	presorted   bool
	bufferSize  string
	tempDir     string
	outputPath  string
	compression string
}

func main() {
	log.AddFlags()
	log.SetFlags(0)
	log.SetPrefix("rwsort: ")
	must.Func = log.Fatal

	var opts options
	cmd := &cobra.Command{
		Use:   "rwsort [flags] [input-file...]",
		Short: "Sort flow records on one or more fields",
		Long: `Rwsort reads flow records from the named files, or from standard
input when no files are given, and writes them to the output sorted on
the fields named by --fields. Known plug-in key fields: ` +
			strings.Join(plugin.Names(), ", ") + `.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(&opts, args)
		},
	}
	addFlags(cmd.Flags(), &opts)
	must.Nil(cmd.MarkFlagRequired("fields"))

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func addFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.fields, "fields", "", "comma-separated list of sort fields (required)")
	flags.BoolVar(&opts.reverse, "reverse", false, "sort in descending order")
	flags.BoolVar(&opts.presorted, "presorted-input", false, "assume each input is already sorted on --fields")
	flags.StringVar(&opts.bufferSize, "sort-buffer-size", "512m", "maximum in-core buffer size (accepts k/m/g suffixes)")
	flags.StringVar(&opts.tempDir, "temp-directory", os.TempDir(), "directory for temporary files")
	flags.StringVar(&opts.outputPath, "output-path", "-", "destination stream; - means standard output")
	flags.StringVar(&opts.compression, "compression-method", "none", "output compression: none, snappy, or zstd")
}

func run(opts *options, inputs []string) error {
	refs, err := flow.ParseFieldList(opts.fields)
	if err != nil {
		return err
	}
	var keys []flowsort.KeyField
	for _, ref := range refs {
		if ref.ID != flow.FieldPlugin {
			continue
		}
		f, ok := plugin.Lookup(ref.Name)
		if !ok {
			return fmt.Errorf("unknown field %q; plug-in fields are: %s",
				ref.Name, strings.Join(plugin.Names(), ", "))
		}
		keys = append(keys, flowsort.KeyField{
			Name:    f.Name,
			Length:  f.Length,
			Fill:    f.Fill,
			Compare: f.Compare,
		})
	}
	layout, err := flowsort.NewLayout(flow.RecSize, keys)
	if err != nil {
		return err
	}
	bufSize, err := parseSize(opts.bufferSize)
	if err != nil {
		return fmt.Errorf("--sort-buffer-size: %v", err)
	}
	log.Debug.Printf("sort buffer capped at %s", data.Size(bufSize))
	method, err := flowio.ParseCompression(opts.compression)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	out, err := flowio.CreateFile(opts.outputPath, flow.RecSize, method)
	if err != nil {
		return err
	}
	sorter, err := flowsort.New(flowsort.Config{
		Layout:     layout,
		Fields:     refs,
		Reverse:    opts.reverse,
		Presorted:  opts.presorted,
		BufferSize: bufSize,
		TempDir:    opts.tempDir,
		Inputs:     flowsort.PathInputs(inputs...),
		Output:     out,
	})
	if err != nil {
		out.Close()
		return err
	}
	if err := sorter.Sort(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// parseSize parses a byte count with an optional k, m, or g suffix.
func parseSize(s string) (int64, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	mult := int64(1)
	switch {
	case strings.HasSuffix(t, "g"), strings.HasSuffix(t, "gib"):
		mult = 1 << 30
	case strings.HasSuffix(t, "m"), strings.HasSuffix(t, "mib"):
		mult = 1 << 20
	case strings.HasSuffix(t, "k"), strings.HasSuffix(t, "kib"):
		mult = 1 << 10
	}
	t = strings.TrimRight(t, "gmkib")
	n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad size %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size %q not positive", s)
	}
	return n * mult, nil
}
