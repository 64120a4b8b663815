package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/mash/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites mash source before it reaches zygomys:
//
//   - :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols.
//   - kebab-case identifiers become snake_case (control-point ->
//     control_point); zygomys reads a hyphen as subtraction.
//   - ; line comments become // comments.
//
// String literals are copied unchanged.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// ; comments.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters; a minus sign is left alone.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNodeRef wraps a scene.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   scene.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(noderef %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec2 wraps a scene.Vec2.
type sexpVec2 struct {
	vec scene.Vec2
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %.1f %.1f)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A
// keyword at the end of the list is a flag with a nil value.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool accepts true/false, numbers (non-zero is true) and a bare flag.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpInt:
		return v.Val != 0, nil
	case *zygo.SexpFloat:
		return v.Val != 0, nil
	}
	if s == zygo.SexpNull {
		return true, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (scene.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	return scene.ZeroID, fmt.Errorf("expected shape reference, got %T (%s)", s, s.SexpString(nil))
}

// toVec2 extracts a Vec2 from a sexpVec2.
func toVec2(s zygo.Sexp) (scene.Vec2, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.vec, nil
	}
	return scene.Vec2{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
}

// toPoint reads a point given either as one vec2 or as two numbers.
func toPoint(args []zygo.Sexp) (scene.Vec2, error) {
	switch len(args) {
	case 1:
		return toVec2(args[0])
	case 2:
		x, err := toFloat64(args[0])
		if err != nil {
			return scene.Vec2{}, fmt.Errorf("x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return scene.Vec2{}, fmt.Errorf("y: %w", err)
		}
		return scene.Vec2{X: x, Y: y}, nil
	}
	return scene.Vec2{}, fmt.Errorf("expected a vec2 or two numbers, got %d arguments", len(args))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Node ID generation
// ---------------------------------------------------------------------------

// idGen numbers anonymous nodes per evaluation, so evaluating the same
// source twice yields the same ids.
type idGen struct {
	counts map[string]int
}

func (g *idGen) next(kind string) scene.NodeID {
	if g.counts == nil {
		g.counts = make(map[string]int)
	}
	g.counts[kind]++
	return scene.NewNodeID(fmt.Sprintf("%s/_anon_%d", kind, g.counts[kind]))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the mash drawing builtins into env. They
// populate s during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *scene.Scene) {
	var ids idGen

	// addShape records a shape node, wrapped in a translation when at is
	// given.
	addShape := func(kind string, d scene.ShapeData, at *scene.Vec2) zygo.Sexp {
		id := ids.next(kind)
		s.AddNode(&scene.Node{ID: id, Kind: scene.NodeShape, Data: d})
		if at == nil {
			return &sexpNodeRef{id: id}
		}
		tid := ids.next("translate")
		s.AddNode(&scene.Node{
			ID:       tid,
			Kind:     scene.NodeTransform,
			Children: []scene.NodeID{id},
			Data:     scene.TransformData{Translation: at},
		})
		return &sexpNodeRef{id: tid}
	}

	// optionalAt reads the :at keyword of a primitive.
	optionalAt := func(fn string, pa kwArgs) (*scene.Vec2, error) {
		v, ok := pa.kw["at"]
		if !ok {
			return nil, nil
		}
		p, err := toVec2(v)
		if err != nil {
			return nil, fmt.Errorf("%s: at: %w", fn, err)
		}
		return &p, nil
	}

	// -----------------------------------------------------------------------
	// (canvas 640 480)
	// -----------------------------------------------------------------------
	env.AddFunction("canvas", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("canvas requires a width and a height, got %d arguments", len(args))
		}
		w, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("canvas: width: %w", err)
		}
		h, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("canvas: height: %w", err)
		}
		s.Canvas = scene.Canvas{W: int(w), H: int(h)}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (vec2 10 20)
	// -----------------------------------------------------------------------
	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
		}
		p, err := toPoint(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: %w", err)
		}
		return &sexpVec2{vec: p}, nil
	})

	// -----------------------------------------------------------------------
	// (circle 20 :at (vec2 100 100))
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("circle requires a radius")
		}
		r, err := toFloat64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: radius: %w", err)
		}
		at, err := optionalAt("circle", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		return addShape("circle", scene.ShapeData{Shape: scene.ShapeCircle, Radius: r}, at), nil
	})

	// -----------------------------------------------------------------------
	// (rect 40 120 :at (vec2 10 10))
	// -----------------------------------------------------------------------
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("rect requires a width and a height")
		}
		size, err := toPoint(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: %w", err)
		}
		at, err := optionalAt("rect", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		return addShape("rect", scene.ShapeData{Shape: scene.ShapeRect, Size: size}, at), nil
	})

	// -----------------------------------------------------------------------
	// (polygon (vec2 0 0) (vec2 10 0) (vec2 0 10))
	// (polygon (list (vec2 0 0) ...))
	// -----------------------------------------------------------------------
	env.AddFunction("polygon", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		items := args
		if len(args) == 1 {
			l, err := sexpListToSlice(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polygon: %w", err)
			}
			items = l
		}
		pts := make([]scene.Vec2, 0, len(items))
		for i, it := range items {
			p, err := toVec2(it)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polygon: point %d: %w", i, err)
			}
			pts = append(pts, p)
		}
		if len(pts) < 3 {
			return zygo.SexpNull, fmt.Errorf("polygon requires at least 3 points, got %d", len(pts))
		}
		return addShape("polygon", scene.ShapeData{Shape: scene.ShapePolygon, Points: pts}, nil), nil
	})

	// -----------------------------------------------------------------------
	// (union a b ...) (difference a b ...) (intersection a b ...)
	// -----------------------------------------------------------------------
	for _, op := range []scene.BooleanOp{scene.OpUnion, scene.OpDifference, scene.OpIntersection} {
		env.AddFunction(op.String(), func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 2 shapes, got %d", op, len(args))
			}
			children := make([]scene.NodeID, len(args))
			for i, a := range args {
				id, err := toNodeRef(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: operand %d: %w", op, i, err)
				}
				children[i] = id
			}
			id := ids.next(op.String())
			s.AddNode(&scene.Node{
				ID:       id,
				Kind:     scene.NodeBoolean,
				Children: children,
				Data:     scene.BooleanData{Op: op},
			})
			return &sexpNodeRef{id: id}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (translate shape 10 20) or (translate shape (vec2 10 20))
	// -----------------------------------------------------------------------
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("translate requires a shape and an offset")
		}
		child, err := toNodeRef(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		off, err := toPoint(args[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: offset: %w", err)
		}
		id := ids.next("translate")
		s.AddNode(&scene.Node{
			ID:       id,
			Kind:     scene.NodeTransform,
			Children: []scene.NodeID{child},
			Data:     scene.TransformData{Translation: &off},
		})
		return &sexpNodeRef{id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (rotate shape 45)
	// -----------------------------------------------------------------------
	env.AddFunction("rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("rotate requires a shape and an angle in degrees")
		}
		child, err := toNodeRef(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
		}
		deg, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: angle: %w", err)
		}
		id := ids.next("rotate")
		s.AddNode(&scene.Node{
			ID:       id,
			Kind:     scene.NodeTransform,
			Children: []scene.NodeID{child},
			Data:     scene.TransformData{Rotation: &deg},
		})
		return &sexpNodeRef{id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (layer "arm" shape :inflate 3 :open shoulder :merge-both-sides true)
	//
	// Layers stack in call order, the first one at the back.
	// -----------------------------------------------------------------------
	env.AddFunction("layer", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("layer requires a name and a shape")
		}
		layerName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("layer: name: %w", err)
		}
		if s.Lookup(layerName) != nil {
			return zygo.SexpNull, fmt.Errorf("layer: %q already defined", layerName)
		}
		region, err := toNodeRef(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("layer %s: shape: %w", layerName, err)
		}

		ld := scene.LayerData{}
		if v, ok := pa.kw["inflate"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer %s: inflate: %w", layerName, err)
			}
			ld.Inflation = &f
		}
		if v, ok := pa.kw["open"]; ok {
			id, err := toNodeRef(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer %s: open: %w", layerName, err)
			}
			ld.Open = id
		}
		if v, ok := pa.kw["merge-both-sides"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer %s: merge-both-sides: %w", layerName, err)
			}
			ld.MergeBothSides = b
		}

		id := scene.NewNodeID("layer/" + layerName)
		s.AddNode(&scene.Node{
			ID:       id,
			Kind:     scene.NodeLayer,
			Name:     layerName,
			Children: []scene.NodeID{region},
			Data:     ld,
		})
		s.AddLayer(id)
		return &sexpNodeRef{id: id, name: layerName}, nil
	})

	// -----------------------------------------------------------------------
	// (config :subsample 2 :smooth 10 :armpits true ...)
	// -----------------------------------------------------------------------
	env.AddFunction("config", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("config takes only keyword arguments")
		}
		for k, v := range pa.kw {
			if f, err := toFloat64(v); err == nil {
				s.Settings[k] = f
				continue
			}
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("config: %s: expected number or boolean", k)
			}
			s.Settings[k] = 0
			if b {
				s.Settings[k] = 1
			}
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (control-point "hand" (vec2 150 60))
	//
	// Registered as "control_point"; the preprocessor rewrites the hyphen.
	// -----------------------------------------------------------------------
	env.AddFunction("control_point", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("control-point requires a name and a position")
		}
		cpName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("control-point: name: %w", err)
		}
		p, err := toPoint(args[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("control-point %s: %w", cpName, err)
		}
		s.AddOp(scene.Op{Kind: scene.OpControlPoint, Name: cpName, Pos: p})
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (move "hand" (vec2 170 40)) or (move "hand" :by (vec2 20 -20))
	// -----------------------------------------------------------------------
	env.AddFunction("move", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("move requires a control point name")
		}
		cpName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move: name: %w", err)
		}
		op := scene.Op{Kind: scene.OpMove, Name: cpName}
		if v, ok := pa.kw["by"]; ok {
			if op.Pos, err = toVec2(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("move %s: by: %w", cpName, err)
			}
			op.Relative = true
		} else if op.Pos, err = toPoint(pa.positional[1:]); err != nil {
			return zygo.SexpNull, fmt.Errorf("move %s: %w", cpName, err)
		}
		s.AddOp(op)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (deform) or (deform 50)
	// -----------------------------------------------------------------------
	env.AddFunction("deform", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		steps := 1
		if len(args) > 1 {
			return zygo.SexpNull, fmt.Errorf("deform takes at most one argument")
		}
		if len(args) == 1 {
			f, err := toFloat64(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("deform: steps: %w", err)
			}
			steps = int(f)
		}
		s.AddOp(scene.Op{Kind: scene.OpDeform, Steps: steps})
		return zygo.SexpNull, nil
	})
}
