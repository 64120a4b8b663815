// Package scene defines the drawing produced by evaluating a mash script.
// A scene is a DAG of 2D shapes, transforms and boolean operations whose
// layer nodes become the region masks handed to the reconstruction, plus
// the ordered list of control-point operations applied afterwards.
package scene
