package main

import (
	"fmt"
	"path/filepath"

	"github.com/flanksource/transmute/api"
)

// planOutputs maps every input path to the file its result is written to.
// An output that would replace one of the inputs gets a ".converted" infix,
// and two inputs resolving to the same output are refused before anything
// is converted.
func planOutputs(inputs []string, outputDir string, to api.Format) (map[string]string, error) {
	sources := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return nil, err
		}
		sources[abs] = true
	}

	outputs := make(map[string]string, len(inputs))
	claimed := make(map[string]string, len(inputs))
	for _, in := range inputs {
		dir := outputDir
		if dir == "" {
			dir = filepath.Dir(in)
		}
		name := api.OutputName(filepath.Base(in), to)
		out := filepath.Join(dir, name)
		abs, err := filepath.Abs(out)
		if err != nil {
			return nil, err
		}
		if sources[abs] {
			out = filepath.Join(dir, api.Stem(name)+".converted"+to.Ext())
			if abs, err = filepath.Abs(out); err != nil {
				return nil, err
			}
		}
		if prev, ok := claimed[abs]; ok {
			return nil, fmt.Errorf("%s and %s would both be written to %s", prev, in, out)
		}
		claimed[abs] = in
		outputs[in] = out
	}
	return outputs, nil
}
