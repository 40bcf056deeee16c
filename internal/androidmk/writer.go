package androidmk

import (
	"fmt"
	"io"
	"strings"

	"ltpgen/internal/model"
)

// Stanza keys of Android.ltp.mk.
const (
	keyTestname        = "module_testname"
	keyLibname         = "module_libname"
	keyPrebuilt        = "module_prebuilt"
	keySrcFiles        = "module_src_files"
	keyCflags          = "module_cflags"
	keyCIncludes       = "module_c_includes"
	keyStaticLibraries = "module_static_libraries"
	keySharedLibraries = "module_shared_libraries"
)

// Build macros closing each stanza kind.
var includeLines = map[model.ModuleKind]string{
	model.KindTest:     "include $(ltp_build_test)",
	model.KindLibrary:  "include $(ltp_build_library)",
	model.KindPrebuilt: "include $(ltp_build_prebuilt)",
}

// DefaultHeader starts a generated Android.ltp.mk.
const DefaultHeader = "# This file is autogenerated by ltpgen. DO NOT EDIT."

func assign(b *strings.Builder, key string, values ...string) {
	fmt.Fprintf(b, "%s := %s\n", key, strings.Join(values, " "))
}

// FormatModule renders one stanza, each line newline-terminated.
func FormatModule(m model.Module) (string, error) {
	var b strings.Builder
	switch m.Kind {
	case model.KindTest:
		assign(&b, keyTestname, m.Name)
		assign(&b, keySrcFiles, m.SrcFiles...)
		assign(&b, keyCflags, m.Cflags...)
		assign(&b, keyCIncludes, m.CIncludes...)
		assign(&b, keyStaticLibraries, m.StaticLibraries...)
		assign(&b, keySharedLibraries, m.SharedLibraries...)
	case model.KindLibrary:
		assign(&b, keyLibname, m.Name)
		assign(&b, keySrcFiles, m.SrcFiles...)
		assign(&b, keyCflags, m.Cflags...)
		assign(&b, keyCIncludes, m.CIncludes...)
	case model.KindPrebuilt:
		assign(&b, keyPrebuilt, m.Name)
		assign(&b, keySrcFiles, m.SrcFiles...)
	default:
		return "", fmt.Errorf("unknown module kind %q", m.Kind)
	}
	b.WriteString(includeLines[m.Kind])
	b.WriteString("\n")
	return b.String(), nil
}

// Writer renders stanzas separated by blank lines.
type Writer struct {
	w       io.Writer
	written int
}

// NewWriter creates a Writer. A non-empty header is written first as its own
// block; every header line should be a make comment.
func NewWriter(w io.Writer, header string) (*Writer, error) {
	mw := &Writer{w: w}
	if header != "" {
		if _, err := io.WriteString(w, strings.TrimRight(header, "\n")+"\n"); err != nil {
			return nil, err
		}
		mw.written++
	}
	return mw, nil
}

// Write renders modules in order.
func (w *Writer) Write(modules ...model.Module) error {
	for _, m := range modules {
		s, err := FormatModule(m)
		if err != nil {
			return err
		}
		if w.written > 0 {
			s = "\n" + s
		}
		if _, err := io.WriteString(w.w, s); err != nil {
			return err
		}
		w.written++
	}
	return nil
}

// Render returns the whole Android.ltp.mk text for modules.
func Render(header string, modules []model.Module) (string, error) {
	var b strings.Builder
	w, err := NewWriter(&b, header)
	if err != nil {
		return "", err
	}
	if err := w.Write(modules...); err != nil {
		return "", err
	}
	return b.String(), nil
}
