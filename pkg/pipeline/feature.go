package pipeline

import (
	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-dframe/pkg/pipeline/model"
)

// topology is the graph of the stage chain, from the start vertex to the end vertex.
type topology struct {
	graph graph.Graph[string, string]
}

func newTopology() (*topology, error) {
	t := &topology{
		graph: graph.New(graph.StringHash, graph.Directed(), graph.Acyclic(), graph.PreventCycles()),
	}
	err := t.addStage(model.StartStage.Name)
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (t *topology) addStage(name string) error {
	err := t.graph.AddVertex(name)
	if errors.Is(err, graph.ErrVertexAlreadyExists) {
		return errors.Wrapf(ErrDuplicateStageName, "%q", name)
	}
	if err != nil {
		return errors.Wrapf(err, "unable to add stage %s", name)
	}

	return nil
}

func (t *topology) addLink(parentName, childName string) error {
	err := t.graph.AddEdge(parentName, childName)
	if err != nil {
		return errors.Wrapf(err, "unable to link %s to %s", parentName, childName)
	}

	return nil
}

// order returns the stage names in processing order, without the start and end vertices.
func (t *topology) order() ([]string, error) {
	sorted, err := graph.TopologicalSort(t.graph)
	if err != nil {
		return nil, errors.Wrap(err, "unable to sort stages")
	}

	res := make([]string, 0, len(sorted))
	for _, name := range sorted {
		if name == model.StartStage.Name || name == model.EndStage.Name {
			continue
		}
		res = append(res, name)
	}

	return res, nil
}
