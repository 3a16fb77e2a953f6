package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cfg(name string, deps ...string) *ServiceConfig {
	return &ServiceConfig{Name: name, Kind: BackendProcess, Process: &ProcessBackend{Binary: "true"}, DependsOn: deps}
}

func TestTopoOrderRespectsDependencies(t *testing.T) {
	configs := map[string]*ServiceConfig{
		"a": cfg("a"),
		"b": cfg("b", "a"),
		"c": cfg("c", "a", "b"),
	}

	order, err := topoOrder(configs)
	require.NoError(t, err)

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}

	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["b"], pos["c"])
}

func TestTopoOrderDetectsCycle(t *testing.T) {
	configs := map[string]*ServiceConfig{
		"a": cfg("a", "b"),
		"b": cfg("b", "a"),
	}

	_, err := topoOrder(configs)
	require.Error(t, err)

	var cycleErr *CyclicDependencyError
	assert.ErrorAs(t, err, &cycleErr)
}

func TestTopoOrderRejectsUnknownDependency(t *testing.T) {
	configs := map[string]*ServiceConfig{
		"a": cfg("a", "missing"),
	}

	_, err := topoOrder(configs)
	require.Error(t, err)

	var unknownErr *UnknownDependencyError
	assert.ErrorAs(t, err, &unknownErr)
}

func TestLayersGroupsIndependentServices(t *testing.T) {
	configs := map[string]*ServiceConfig{
		"a": cfg("a"),
		"b": cfg("b"),
		"c": cfg("c", "a", "b"),
	}

	order, err := topoOrder(configs)
	require.NoError(t, err)

	ls := layers(configs, order)
	require.Len(t, ls, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, ls[0])
	assert.Equal(t, []string{"c"}, ls[1])
}
