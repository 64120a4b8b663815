package main

import (
	"context"
	"fmt"
	"log"

	"github.com/chazu/mash/pkg/engine"
	"github.com/chazu/mash/pkg/kernel"
	"github.com/chazu/mash/pkg/kernel/sdfx"
	"github.com/chazu/mash/pkg/scene"
	"github.com/chazu/mash/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to layers.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs a script through evaluation, reconstruction and deformation.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
}

// MeshData is the JSON-serializable mesh of one layer.
type MeshData struct {
	Vertices []float32  `json:"vertices"`
	Normals  []float32  `json:"normals"`
	Indices  []uint32   `json:"indices"`
	PartName string     `json:"partName"`
	Color    string     `json:"color"`
	Min      [3]float32 `json:"min"`
	Max      [3]float32 `json:"max"`
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the outcome of one run. All slices are non-nil so they
// encode as [] rather than null.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates a new App with an engine and the sdfx kernel.
func NewApp() *App {
	return &App{
		engine: engine.NewEngine(),
		kernel: sdfx.New(),
	}
}

// Evaluate runs source without a deadline beyond the engine timeout.
func (a *App) Evaluate(source string) EvalResult {
	return a.EvaluateContext(context.Background(), source)
}

// EvaluateContext takes Lisp source and returns the layer meshes or the
// reasons there are none. Errors in any phase leave Meshes empty.
func (a *App) EvaluateContext(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	s, evalErrs, err := a.engine.EvaluateContext(ctx, source)
	switch {
	case err != nil:
		log.Printf("evaluate: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	case len(evalErrs) > 0:
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}
	for _, w := range engine.Warnings(s) {
		result.Warnings = append(result.Warnings, EvalErrorData{Line: w.Line, Col: w.Col, Message: w.Message})
	}

	if err := ctx.Err(); err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	meshes, err := a.reconstruct(s)
	if err != nil {
		log.Printf("reconstruct: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "reconstruction failed: " + err.Error()})
		return result
	}
	result.Meshes = meshData(meshes)
	return result
}

// reconstruct inflates and deforms the scene, turning kernel panics on
// degenerate shapes into errors.
func (a *App) reconstruct(s *scene.Scene) (meshes []*kernel.Mesh, err error) {
	defer func() {
		if r := recover(); r != nil {
			meshes, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return tessellate.Tessellate(s, a.kernel)
}

// meshData colours the meshes by layer position.
func meshData(meshes []*kernel.Mesh) []MeshData {
	out := make([]MeshData, 0, len(meshes))
	for i, m := range meshes {
		lo, hi := m.Bounds()
		out = append(out, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
			Min:      lo,
			Max:      hi,
		})
	}
	return out
}
