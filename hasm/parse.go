package hasm

import (
	"io/fs"
	"path"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hasm/internal/parser"
	"github.com/wippyai/hbctool/hasm/internal/token"
	"github.com/wippyai/hbctool/hbc"
)

// GrammarVersion is the version of the assembly grammar written by Render
// and accepted by Parse.
const GrammarVersion = parser.GrammarVersion

// File is one named source of assembly text.
type File struct {
	Name   string
	Source string
}

// Parse parses a single assembly source into a module.
func Parse(src string) (*hbc.Module, error) {
	return ParseFiles(File{Source: src})
}

// ParseFiles parses assembly split across several files. Declarations may
// appear in any file and in any order.
func ParseFiles(files ...File) (*hbc.Module, error) {
	unit := parser.NewUnit()
	for _, f := range files {
		p := parser.New(f.Name, token.Tokenize(f.Source), unit)
		if err := p.Parse(); err != nil {
			return nil, err
		}
	}
	m, err := unit.Module()
	if err != nil {
		return nil, err
	}
	Logger().Debug("parsed assembly",
		zap.Int("files", len(files)),
		zap.Uint32("version", m.Version),
		zap.Int("functions", len(m.Functions)))
	return m, nil
}

// ParseFS parses every .hasm file in fsys, in lexical path order.
func ParseFS(fsys fs.FS) (*hbc.Module, error) {
	var names []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && path.Ext(p) == FileExtension {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidInput, err, "list assembly files")
	}
	if len(names) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no "+FileExtension+" files found")
	}
	sort.Strings(names)

	files := make([]File, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
				Path(name).
				Cause(err).
				Detail("read %s", name).
				Build()
		}
		files = append(files, File{Name: name, Source: string(data)})
	}
	return ParseFiles(files...)
}
