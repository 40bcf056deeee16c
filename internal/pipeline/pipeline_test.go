package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ltpgen/internal/androidmk"
	"ltpgen/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunBothTraces(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "ltp")
	writeFile(t, filepath.Join(root, "testcases", "bin", "run.sh"), "#!/bin/sh\n")

	makeDump := filepath.Join(dir, MakeDryRunFileName)
	writeFile(t, makeDump, strings.Join([]string{
		"make[1]: Entering directory `" + root + "/testcases/foo'",
		"gcc -c -o foo.o foo.c",
		"gcc -o foo foo.o -lm",
		"make[1]: Leaving directory `" + root + "/testcases/foo'",
	}, "\n"))

	installDump := filepath.Join(dir, MakeInstallDryRunFileName)
	writeFile(t, installDump, strings.Join([]string{
		`install -m 00775 "` + root + `/testcases/bin/run.sh" "/opt/ltp/testcases/bin/run.sh"`,
		`install -m 00775 "` + root + `/testcases/foo/foo" "/opt/ltp/testcases/bin/foo"`,
	}, "\n"))

	res, err := Run(Inputs{LTPRoot: root, MakeDump: makeDump, InstallDump: installDump}, androidmk.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Modules) != 2 {
		t.Fatalf("expected test and prebuilt modules, got %+v", res.Modules)
	}
	test, prebuilt := res.Modules[0], res.Modules[1]
	if test.Kind != model.KindTest || test.Name != "testcases/foo/foo" {
		t.Errorf("unexpected test module %+v", test)
	}
	if len(test.SrcFiles) != 1 || test.SrcFiles[0] != "testcases/foo/foo.c" {
		t.Errorf("unexpected sources %q", test.SrcFiles)
	}
	if len(test.SharedLibraries) != 1 || test.SharedLibraries[0] != "m" {
		t.Errorf("unexpected shared libraries %q", test.SharedLibraries)
	}
	if prebuilt.Kind != model.KindPrebuilt || prebuilt.Name != "testcases/bin/run.sh" {
		t.Errorf("unexpected prebuilt module %+v", prebuilt)
	}
}

func TestRunReportsDumpOnError(t *testing.T) {
	dir := t.TempDir()
	makeDump := filepath.Join(dir, "bad.dump")
	writeFile(t, makeDump, "make: Leaving directory `/ltp'\n")

	_, err := Run(Inputs{LTPRoot: "/ltp", MakeDump: makeDump}, androidmk.Config{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "bad.dump") || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected file and line in error, got %q", err)
	}
}
