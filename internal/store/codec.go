package store

import (
	json "github.com/goccy/go-json"

	"github.com/kode4food/waypoint/pkg/api"
)

func encodeGraph(g *api.Graph) ([]byte, error) {
	return json.Marshal(g)
}

func decodeGraph(data []byte) (*api.Graph, error) {
	var g api.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func encodeRun(r *api.Run) ([]byte, error) {
	return json.Marshal(r)
}

func decodeRun(data []byte) (*api.Run, error) {
	var r api.Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
