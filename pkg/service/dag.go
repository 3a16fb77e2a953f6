package service

import "sort"

// topoOrder returns configs' names in dependency order (a dependency always
// precedes its dependents) or a CyclicDependencyError/UnknownDependencyError
// if the graph is invalid. Detection runs once, before any service is
// spawned, per spec §4.8.
func topoOrder(configs map[string]*ServiceConfig) ([]string, error) {
	for name, cfg := range configs {
		for _, dep := range cfg.DependsOn {
			if _, ok := configs[dep]; !ok {
				return nil, &UnknownDependencyError{Service: name, Dependency: dep}
			}
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[string]int, len(configs))
	order := make([]string, 0, len(configs))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			cycle := append(append([]string(nil), path...), name)

			return &CyclicDependencyError{Cycle: cycle}
		}

		state[name] = visiting
		path = append(path, name)

		for _, dep := range configs[name].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[name] = visited

		order = append(order, name)

		return nil
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// layers groups order into dependency-levels: every service in layer i has
// all its dependencies in layers 0..i-1, so every service within one layer
// can start concurrently.
func layers(configs map[string]*ServiceConfig, order []string) [][]string {
	level := make(map[string]int, len(order))

	for _, name := range order {
		max := -1

		for _, dep := range configs[name].DependsOn {
			if level[dep] > max {
				max = level[dep]
			}
		}

		level[name] = max + 1
	}

	var out [][]string

	for _, name := range order {
		l := level[name]
		for len(out) <= l {
			out = append(out, nil)
		}

		out[l] = append(out[l], name)
	}

	return out
}
