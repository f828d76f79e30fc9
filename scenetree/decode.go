package scenetree

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/holistic-stack/ob-sub002/geom"
)

// rawNode is the document form of a node. Field names follow OpenSCAD
// parameter names.
type rawNode struct {
	Type     string    `yaml:"type"`
	Size     yaml.Node `yaml:"size"`
	Center   bool      `yaml:"center"`
	R        float64   `yaml:"r"`
	R1       *float64  `yaml:"r1"`
	R2       *float64  `yaml:"r2"`
	H        float64   `yaml:"h"`
	Fn       int       `yaml:"fn"`
	V        yaml.Node `yaml:"v"`
	A        yaml.Node `yaml:"a"`
	M        yaml.Node `yaml:"m"`
	Material string    `yaml:"material"`
	C        []float64 `yaml:"c"`
	Child    *rawNode  `yaml:"child"`
	Children []rawNode `yaml:"children"`
}

// Decode parses a YAML (or JSON) scene document:
//
//	type: difference
//	children:
//	  - {type: cube, size: [2, 2, 2], center: true}
//	  - {type: sphere, r: 1, fn: 32}
//
// Transforms take their child from child or children; several children
// are wrapped in an implicit union.
func Decode(data []byte) (Node, error) {
	var raw rawNode
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("scenetree: decode: %w", err)
	}
	return raw.node("root")
}

// DecodeFile reads and decodes a scene document.
func DecodeFile(path string) (Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenetree: read scene: %w", err)
	}
	return Decode(data)
}

func (r *rawNode) node(path string) (Node, error) {
	switch r.Type {
	case "cube":
		size, err := vec3(&r.Size, geom.V3(1, 1, 1))
		if err != nil {
			return nil, fmt.Errorf("%s: cube size: %w", path, err)
		}
		return Cube(size, r.Center), nil
	case "sphere":
		return Sphere(r.R, r.Fn), nil
	case "cylinder":
		r1, r2 := r.R, r.R
		if r.R1 != nil {
			r1 = *r.R1
		}
		if r.R2 != nil {
			r2 = *r.R2
		}
		return Cylinder(r.H, r1, r2, r.Fn, r.Center), nil
	case "union", "difference", "intersection":
		children, err := r.children(path)
		if err != nil {
			return nil, err
		}
		op := map[string]BooleanOp{"union": Union, "difference": Difference, "intersection": Intersection}[r.Type]
		return &Boolean{Op: op, Children: children}, nil
	case "translate", "rotate", "scale", "mirror", "multmatrix":
		return r.transform(path)
	case "color":
		child, err := r.single(path)
		if err != nil {
			return nil, err
		}
		var rgba [4]float64
		rgba[3] = 1
		copy(rgba[:], r.C)
		return NewColor(r.Material, rgba, child), nil
	case "":
		return nil, fmt.Errorf("%w: %s: missing type", ErrInvalidNode, path)
	default:
		return nil, fmt.Errorf("%w: %s: %q", ErrUnsupportedNode, path, r.Type)
	}
}

func (r *rawNode) transform(path string) (Node, error) {
	child, err := r.single(path)
	if err != nil {
		return nil, err
	}
	switch r.Type {
	case "translate":
		v, err := vec3(&r.V, geom.Vec3{})
		if err != nil {
			return nil, fmt.Errorf("%s: translate: %w", path, err)
		}
		return NewTranslate(v, child), nil
	case "rotate":
		return r.rotate(path, child)
	case "scale":
		v, err := vec3(&r.V, geom.V3(1, 1, 1))
		if err != nil {
			return nil, fmt.Errorf("%s: scale: %w", path, err)
		}
		return NewScale(v, child), nil
	case "mirror":
		v, err := vec3(&r.V, geom.V3(1, 0, 0))
		if err != nil {
			return nil, fmt.Errorf("%s: mirror: %w", path, err)
		}
		return NewMirror(v, child), nil
	default:
		m, err := matrix(&r.M)
		if err != nil {
			return nil, fmt.Errorf("%s: multmatrix: %w", path, err)
		}
		if _, err := geom.FromRowMajor(m); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidNode, path, err)
		}
		return NewMultMatrix(m, child), nil
	}
}

// rotate follows OpenSCAD: a vector a is Euler angles, a scalar a with v
// is an axis-angle rotation, and a scalar a alone rotates about Z.
func (r *rawNode) rotate(path string, child Node) (Node, error) {
	if r.A.Kind == yaml.ScalarNode {
		var deg float64
		if err := r.A.Decode(&deg); err != nil {
			return nil, fmt.Errorf("%s: rotate angle: %w", path, err)
		}
		axis, err := vec3(&r.V, geom.V3(0, 0, 1))
		if err != nil {
			return nil, fmt.Errorf("%s: rotate axis: %w", path, err)
		}
		return NewRotateAxis(deg, axis, child), nil
	}
	deg, err := vec3(&r.A, geom.Vec3{})
	if err != nil {
		return nil, fmt.Errorf("%s: rotate: %w", path, err)
	}
	return NewRotate(deg, child), nil
}

func (r *rawNode) children(path string) ([]Node, error) {
	out := make([]Node, 0, len(r.Children))
	for i := range r.Children {
		n, err := r.Children[i].node(fmt.Sprintf("%s/%s[%d]", path, r.Type, i))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if r.Child != nil {
		n, err := r.Child.node(path + "/" + r.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// single returns the only child of a transform or color node.
func (r *rawNode) single(path string) (Node, error) {
	children, err := r.children(path)
	if err != nil {
		return nil, err
	}
	switch len(children) {
	case 0:
		return nil, fmt.Errorf("%w: %s: %s needs a child", ErrInvalidNode, path, r.Type)
	case 1:
		return children[0], nil
	default:
		return NewUnion(children...), nil
	}
}

// vec3 decodes a scalar (applied to all axes), a 2-vector (z from def)
// or a 3-vector. An absent value yields def.
func vec3(n *yaml.Node, def geom.Vec3) (geom.Vec3, error) {
	switch n.Kind {
	case 0:
		return def, nil
	case yaml.ScalarNode:
		var f float64
		if err := n.Decode(&f); err != nil {
			return geom.Vec3{}, err
		}
		return geom.V3(f, f, f), nil
	case yaml.SequenceNode:
		var fs []float64
		if err := n.Decode(&fs); err != nil {
			return geom.Vec3{}, err
		}
		switch len(fs) {
		case 2:
			return geom.V3(fs[0], fs[1], def[2]), nil
		case 3:
			return geom.V3(fs[0], fs[1], fs[2]), nil
		}
		return geom.Vec3{}, fmt.Errorf("%w: vector has %d components", ErrInvalidNode, len(fs))
	default:
		return geom.Vec3{}, fmt.Errorf("%w: expected number or vector at line %d", ErrInvalidNode, n.Line)
	}
}

// matrix decodes a flat list of values or a list of rows.
func matrix(n *yaml.Node) ([]float64, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: m must be a list", ErrInvalidNode)
	}
	var flat []float64
	if err := n.Decode(&flat); err == nil {
		return flat, nil
	}
	var rows [][]float64
	if err := n.Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: m: %w", ErrInvalidNode, err)
	}
	out := make([]float64, 0, 16)
	for _, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("%w: matrix row has %d values, want 4", ErrInvalidNode, len(row))
		}
		out = append(out, row...)
	}
	return out, nil
}
