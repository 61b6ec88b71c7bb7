// Package scorer implements the model scorer (C9): an unsupervised
// one-class anomaly detector loaded once at worker startup from a
// pre-trained artifact. The contract is exactly two operations — Load and
// Score — so the detector implementation underneath can be swapped
// without touching any caller. This package implements an isolation
// forest: an ensemble of random split trees where anomalies take a
// shorter average path to isolate than normal points.
package scorer

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/physio/engine/internal/core"
)

// node is one split (or leaf) in an isolation tree.
type node struct {
	Leaf    bool    `json:"leaf"`
	Size    int     `json:"size,omitempty"`
	Feature int     `json:"feature,omitempty"`
	Split   float64 `json:"split,omitempty"`
	Left    *node   `json:"left,omitempty"`
	Right   *node   `json:"right,omitempty"`
}

// tree is one isolation tree in the forest.
type tree struct {
	Root *node `json:"root"`
}

// Model is the serialized artifact produced offline by a training job and
// loaded verbatim at worker startup. It has no notion of "training" at
// runtime — it is opaque, pre-fit state.
type Model struct {
	Trees      []tree  `json:"trees"`
	SampleSize int     `json:"sample_size"`
	Threshold  float64 `json:"threshold"`
}

// Load reads a Model from path. A missing or malformed model is fatal to
// the worker at startup (core.ErrModelUnloadable) — there is no
// degraded-but-running mode without a scorer.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", core.ErrModelUnloadable, path, err)
	}
	defer f.Close()

	var m Model
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", core.ErrModelUnloadable, path, err)
	}
	if len(m.Trees) == 0 || m.SampleSize <= 1 {
		return nil, fmt.Errorf("%w: empty or invalid model at %s", core.ErrModelUnloadable, path)
	}
	return &m, nil
}

// Score evaluates one 6-feature vector (hr, bp_sys, bp_dia, spo2, rr,
// temp) and returns whether it is flagged as anomalous and its scalar
// anomaly score. The score convention is higher = more abnormal,
// consistent across the whole pipeline.
func (m *Model) Score(vector [6]float64) (bool, float64) {
	var totalPathLen float64
	for _, t := range m.Trees {
		totalPathLen += pathLength(t.Root, vector, 0)
	}
	avgPathLen := totalPathLen / float64(len(m.Trees))

	c := averagePathLengthNormalization(m.SampleSize)
	score := math.Pow(2, -avgPathLen/c)

	return score > m.Threshold, round4(score)
}

// pathLength walks the tree until a leaf, adding an estimated remaining
// path length (via the normalization constant of the leaf's retained
// sample count) so shallow trees still produce a meaningful score.
func pathLength(n *node, vector [6]float64, depth int) float64 {
	if n == nil || n.Leaf {
		size := 1
		if n != nil {
			size = n.Size
		}
		return float64(depth) + averagePathLengthNormalization(size)
	}

	if n.Feature < 0 || n.Feature >= len(vector) {
		return float64(depth)
	}
	if vector[n.Feature] < n.Split {
		return pathLength(n.Left, vector, depth+1)
	}
	return pathLength(n.Right, vector, depth+1)
}

// averagePathLengthNormalization is c(n), the average path length of an
// unsuccessful search in a binary search tree of n nodes, used to
// normalize isolation-tree path lengths into a score in (0, 1).
func averagePathLengthNormalization(n int) float64 {
	if n <= 1 {
		return 0
	}
	const eulerGamma = 0.5772156649
	nf := float64(n)
	return 2*(math.Log(nf-1)+eulerGamma) - 2*(nf-1)/nf
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
