// Package pipeline chains the trace parsers and the generator the way the
// Android.ltp.mk update flow runs them: the make trace and the install trace
// each go through their own parse -> aggregate -> generate pass.
package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"ltpgen/internal/androidmk"
	"ltpgen/internal/model"
	"ltpgen/internal/rules"
	"ltpgen/internal/trace"
)

// Default dump file names, relative to the working directory.
const (
	MakeDryRunFileName        = "make_dry_run.dump"
	MakeInstallDryRunFileName = "make_install_dry_run.dump"
)

// Inputs names the traces of one run. Empty dump paths are skipped.
type Inputs struct {
	LTPRoot       string
	MakeDump      string
	InstallDump   string
	InstallPrefix string
}

// Parser is implemented by the make and make install trace parsers.
type Parser interface {
	Parse(r io.Reader, out *rules.Writer) error
}

// Rules runs p over r and aggregates its output. The rules go through their
// textual form so the generator only ever sees what a rules file would hold.
func Rules(p Parser, r io.Reader) (*rules.Table, error) {
	var buf bytes.Buffer
	if err := p.Parse(r, rules.NewWriter(&buf)); err != nil {
		return nil, err
	}
	return rules.Parse(&buf)
}

func rulesFromFile(p Parser, path string) (*rules.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := Rules(p, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Run parses both traces and generates their modules, make trace first.
func Run(in Inputs, cfg androidmk.Config) (model.GenerationResult, error) {
	var result model.GenerationResult
	gen := androidmk.NewGenerator(cfg)

	type pass struct {
		dump   string
		parser func() (Parser, error)
	}
	passes := []pass{
		{in.MakeDump, func() (Parser, error) { return trace.NewMakeParser(in.LTPRoot) }},
		{in.InstallDump, func() (Parser, error) { return trace.NewInstallParser(in.LTPRoot, in.InstallPrefix) }},
	}
	for _, p := range passes {
		if p.dump == "" {
			continue
		}
		parser, err := p.parser()
		if err != nil {
			return result, err
		}
		table, err := rulesFromFile(parser, p.dump)
		if err != nil {
			return result, err
		}
		res, err := gen.Generate(table)
		if err != nil {
			return result, fmt.Errorf("%s: %w", p.dump, err)
		}
		result.Append(res)
	}
	return result, nil
}
