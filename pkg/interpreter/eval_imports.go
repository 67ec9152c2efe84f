package interpreter

import (
	"sort"
	"strings"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

func (i *Interpreter) execImport(s *ast.ImportStatement, env *runtime.Environment) error {
	module, err := i.loadModule(s.Module)
	if err != nil {
		return err
	}
	names := s.Names
	if len(names) == 0 {
		for _, name := range sortedExportNames(module.exports) {
			names = append(names, &ast.ImportName{Name: name})
		}
	}
	for _, name := range names {
		value, ok := module.exports[name.Name]
		if !ok {
			return newError(KindImport, "module '%s' has no member '%s'", module.name, name.Name)
		}
		env.Define(name.LocalName(), value)
	}
	return nil
}

// loadModule evaluates each module at most once per run.
func (i *Interpreter) loadModule(name string) (*moduleInstance, error) {
	if cached, ok := i.session.modules[name]; ok {
		return cached, nil
	}
	if i.session.isLoading(name) {
		cycle := append(append([]string(nil), i.session.loading...), name)
		return nil, newError(KindImport, "import cycle: %s", strings.Join(cycle, " -> "))
	}
	if i.resolver == nil {
		return nil, newError(KindImport, "cannot import '%s': %v", name, errNoResolver)
	}
	unit, err := i.resolver.ResolveModule(i.ctx, name)
	if err != nil {
		return nil, newError(KindImport, "cannot import '%s': %v", name, err)
	}
	if unit == nil {
		return nil, newError(KindImport, "module '%s' not found", name)
	}
	i.logger.DebugContext(i.ctx, "module resolved", "module", name, "path", unit.Path, "native", unit.Program == nil)

	instance := &moduleInstance{name: name, exports: make(map[string]runtime.Value)}
	for fname, fn := range unit.Natives {
		instance.exports[fname] = fn
	}
	if unit.Program != nil {
		i.session.loading = append(i.session.loading, name)
		moduleEnv := runtime.NewEnvironment(nil)
		savedLoops := i.loopDepth
		i.loopDepth = 0
		// Module statements carry the module's own line numbers.
		i.hooksSuspended++
		_, err := i.execBlock(unit.Program.Body, moduleEnv)
		i.hooksSuspended--
		i.loopDepth = savedLoops
		i.session.loading = i.session.loading[:len(i.session.loading)-1]
		if err != nil {
			return nil, err
		}
		for k, v := range moduleEnv.Snapshot() {
			instance.exports[k] = v
		}
	}
	i.session.modules[name] = instance
	return instance, nil
}

func sortedExportNames(exports map[string]runtime.Value) []string {
	names := make([]string, 0, len(exports))
	for name := range exports {
		if strings.HasPrefix(name, "_") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
