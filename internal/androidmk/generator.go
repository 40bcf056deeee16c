// Package androidmk turns parsed LTP make rules into Android.ltp.mk module
// stanzas and filters them against build results.
package androidmk

import (
	"fmt"
	"path"
	"strings"

	"ltpgen/internal/model"
	"ltpgen/internal/rules"
)

// ArTargetToLibraryName converts an ar target to a library name:
// lib/libltp.a -> ltp.
func ArTargetToLibraryName(arTarget string) string {
	base := path.Base(arTarget)
	return strings.TrimSuffix(strings.TrimPrefix(base, "lib"), ".a")
}

// Generator produces module stanzas from rule tables.
type Generator struct {
	cfg Config
}

func NewGenerator(cfg Config) *Generator {
	if cfg.OnDuplicate == "" {
		cfg.OnDuplicate = DuplicateSkip
	}
	return &Generator{cfg: cfg}
}

// genRun is the state of one Generate call.
type genRun struct {
	*Generator
	table *rules.Table

	// All libraries built by LTP (used by a test or not)
	ltpLibs model.StringSet
	// Libraries used by the tests that get a module
	ltpLibsUsed model.StringSet
	// Basenames of the test modules emitted so far
	namesUsed model.StringSet

	result model.GenerationResult
}

// Generate synthesizes the modules of one rule table: test executables, then
// the LTP static libraries they use, then prebuilts.
func (g *Generator) Generate(table *rules.Table) (model.GenerationResult, error) {
	run := &genRun{
		Generator:   g,
		table:       table,
		ltpLibs:     model.StringSet{},
		ltpLibsUsed: model.StringSet{},
		namesUsed:   model.StringSet{},
	}
	for _, t := range table.Targets(rules.Archive).Keys() {
		run.ltpLibs[ArTargetToLibraryName(t)] = true
	}

	run.suggest()

	for _, step := range []func() error{
		run.compileLinkTargets,
		run.linkTargets,
		run.archiveTargets,
		run.installTargets,
	} {
		if err := step(); err != nil {
			return model.GenerationResult{}, err
		}
	}
	return run.result, nil
}

func (run *genRun) skip(target string, kind rules.Kind, format string, args ...interface{}) {
	run.result.Skipped = append(run.result.Skipped, model.SkippedTarget{
		Target: target,
		Kind:   string(kind),
		Reason: fmt.Sprintf(format, args...),
	})
}

// suggest lists tests that depend on a disabled library or cflag but are not
// in the disabled tests list yet.
func (run *genRun) suggest() {
	libs := run.table.Targets(rules.Libraries)
	for _, t := range libs.Keys() {
		v, _ := libs.Get(t)
		if run.cfg.DisabledLibs.Intersects(v) {
			run.result.Suggestions.DisabledLibTests = append(run.result.Suggestions.DisabledLibTests, path.Base(t))
		}
	}

	flags := run.table.Targets(rules.Flags)
	for _, t := range flags.Keys() {
		v, _ := flags.Get(t)
		if !run.cfg.DisabledCflags.Intersects(v) {
			continue
		}
		name := path.Base(t)
		if idx := strings.Index(name, "_"); idx > 0 {
			name = name[:idx]
		}
		run.result.Suggestions.DisabledCflagTests = append(run.result.Suggestions.DisabledCflagTests, name)
	}
}

func (run *genRun) compileLinkTargets() error {
	kind := rules.CompileLink
	targets := run.table.Targets(kind)
	for _, target := range targets.Keys() {
		if run.cfg.DisabledTests.Has(path.Base(target)) {
			run.skip(target, rules.CompileLink, "disabled test")
			continue
		}
		srcs, _ := targets.Get(target)
		cflags, err := run.table.Lookup(rules.Flags, target)
		if err != nil {
			return err
		}
		includes, err := run.table.Lookup(rules.Includes, target)
		if err != nil {
			return err
		}
		libs, err := run.table.Lookup(rules.Libraries, target)
		if err != nil {
			return err
		}
		if !run.enabled(target, rules.CompileLink, libs, cflags) {
			continue
		}
		if err := run.buildExecutable(target, kind, srcs, cflags, includes, libs); err != nil {
			return err
		}
	}
	return nil
}

func (run *genRun) linkTargets() error {
	kind := rules.Link
	targets := run.table.Targets(kind)
	for _, target := range targets.Keys() {
		if run.cfg.DisabledTests.Has(path.Base(target)) {
			run.skip(target, rules.Link, "disabled test")
			continue
		}
		libs, err := run.table.Lookup(rules.Libraries, target)
		if err != nil {
			return err
		}
		objs, _ := targets.Get(target)
		// Android.mk takes one set of flags per module; the superset of the
		// object flags works for LTP tests.
		srcs, cflags, includes, err := run.accumulateObjects(objs)
		if err != nil {
			return fmt.Errorf("linking %q: %w", target, err)
		}
		if !run.enabled(target, rules.Link, libs, cflags) {
			continue
		}
		if err := run.buildExecutable(target, kind, srcs, cflags, includes, libs); err != nil {
			return err
		}
	}
	return nil
}

func (run *genRun) archiveTargets() error {
	targets := run.table.Targets(rules.Archive)
	for _, target := range targets.Keys() {
		// Disabled libraries never make it into ltpLibsUsed.
		if !run.ltpLibsUsed.Has(ArTargetToLibraryName(target)) {
			run.skip(target, rules.Archive, "not used by any enabled test")
			continue
		}
		objs, _ := targets.Get(target)
		srcs, cflags, includes, err := run.accumulateObjects(objs)
		if err != nil {
			return fmt.Errorf("archiving %q: %w", target, err)
		}
		if run.cfg.DisabledCflags.Intersects(cflags) {
			run.skip(target, rules.Archive, "uses a disabled cflag")
			continue
		}
		run.result.Modules = append(run.result.Modules, model.Module{
			Kind:      model.KindLibrary,
			Name:      ArTargetToLibraryName(target),
			Target:    target,
			SrcFiles:  srcs,
			Cflags:    cflags,
			CIncludes: includes,
		})
	}
	return nil
}

func (run *genRun) installTargets() error {
	targets := run.table.Targets(rules.Install)
	for _, target := range targets.Keys() {
		if run.cfg.DisabledTests.Has(path.Base(target)) {
			run.skip(target, rules.Install, "disabled test")
			continue
		}
		srcs, _ := targets.Get(target)
		if len(srcs) != 1 {
			return fmt.Errorf("install target %q has %d sources, want exactly 1", target, len(srcs))
		}
		run.result.Modules = append(run.result.Modules, model.Module{
			Kind:     model.KindPrebuilt,
			Name:     target,
			Target:   target,
			SrcFiles: []string{srcs[0]},
		})
	}
	return nil
}

func (run *genRun) enabled(target string, kind rules.Kind, libs, cflags []string) bool {
	if run.cfg.DisabledLibs.Intersects(libs) {
		run.skip(target, kind, "links a disabled library")
		return false
	}
	if run.cfg.DisabledCflags.Intersects(cflags) {
		run.skip(target, kind, "uses a disabled cflag")
		return false
	}
	return true
}

// accumulateObjects collects, in first-seen order, the sources, flags and
// include paths of the compile rules of objs.
func (run *genRun) accumulateObjects(objs []string) (srcs, cflags, includes []string, err error) {
	var s, f, i rules.OrderedSet
	for _, obj := range objs {
		v, err := run.table.Lookup(rules.Compile, obj)
		if err != nil {
			return nil, nil, nil, err
		}
		s.Add(v...)
		if v, err = run.table.Lookup(rules.Flags, obj); err != nil {
			return nil, nil, nil, err
		}
		f.Add(v...)
		if v, err = run.table.Lookup(rules.Includes, obj); err != nil {
			return nil, nil, nil, err
		}
		i.Add(v...)
	}
	return s.Items(), f.Items(), i.Items(), nil
}

func (run *genRun) buildExecutable(target string, kind rules.Kind, srcs, cflags, includes, libs []string) error {
	baseName := path.Base(target)
	if run.namesUsed.Has(baseName) {
		if run.cfg.OnDuplicate == DuplicateFail {
			return fmt.Errorf("base name %s of cc_target %s already used", baseName, target)
		}
		run.cfg.logger().Printf("ERROR: base name %s of cc_target %s already used. Skipping...", baseName, target)
		run.skip(target, kind, "base name %s already used", baseName)
		return nil
	}
	run.namesUsed[baseName] = true

	builtin := run.cfg.builtinLibs()
	static := []string{}
	shared := []string{}
	for _, lib := range rules.UniqueKeepOrder(libs) {
		switch {
		case run.ltpLibs.Has(lib):
			static = append(static, lib)
			run.ltpLibsUsed[lib] = true
		case !builtin.Has(lib):
			shared = append(shared, lib)
		}
	}

	run.result.Modules = append(run.result.Modules, model.Module{
		Kind:            model.KindTest,
		Name:            target,
		Target:          target,
		SrcFiles:        srcs,
		Cflags:          cflags,
		CIncludes:       includes,
		StaticLibraries: static,
		SharedLibraries: shared,
	})
	return nil
}
