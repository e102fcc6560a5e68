package engine

import (
	"fmt"
	"strconv"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/toponame/pkg/kernel"
	"github.com/chazu/toponame/pkg/naming"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms modeling script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: def-shape -> def_shape
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
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
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
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
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
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

// sexpShape wraps a named shape so it can be passed between builtins.
type sexpShape struct {
	ts *naming.TopoShape
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	sh := s.ts.Shape()
	return fmt.Sprintf("(shape %dv %de %df)",
		sh.Count(kernel.KindVertex), sh.Count(kernel.KindEdge), sh.Count(kernel.KindFace))
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpSub wraps one sub-shape of a named shape.
type sexpSub struct {
	owner *naming.TopoShape
	sub   kernel.Subshape
}

func (s *sexpSub) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %d)", s.sub.Kind, s.sub.Index)
}
func (s *sexpSub) Type() *zygo.RegisteredType { return nil }

func (s *sexpSub) reference() naming.Reference {
	return s.owner.SubshapeReference(s.sub)
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

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

// toInt extracts a non-negative int from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	v, ok := s.(*zygo.SexpInt)
	if !ok {
		return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
	}
	if v.Val < 0 {
		return 0, fmt.Errorf("expected non-negative integer, got %d", v.Val)
	}
	return int(v.Val), nil
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_face) and plain strings ("face").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toKind converts :vertex, :edge or :face to a kernel.Kind.
func toKind(s zygo.Sexp) (kernel.Kind, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected kind keyword (:vertex, :edge, :face): %w", err)
	}
	for _, k := range kernel.Kinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("invalid kind %q, expected vertex, edge, or face", name)
}

// toShape extracts a named shape from a sexpShape.
func toShape(s zygo.Sexp) (*naming.TopoShape, error) {
	if v, ok := s.(*sexpShape); ok {
		return v.ts, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// toSub extracts a sub-shape handle from a sexpSub.
func toSub(s zygo.Sexp) (*sexpSub, error) {
	if v, ok := s.(*sexpSub); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected sub-shape, got %T (%s)", s, s.SexpString(nil))
}

// floats extracts exactly n numbers.
func floats(fn string, args []zygo.Sexp, names ...string) ([]float64, error) {
	if len(args) != len(names) {
		return nil, fmt.Errorf("%s requires exactly %d arguments, got %d", fn, len(names), len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", fn, names[i], err)
		}
		out[i] = f
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the modeling builtins into a zygomys
// environment. Every builtin that creates a shape runs one kernel operation
// and names the result before returning it.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *session) {

	// -----------------------------------------------------------------------
	// (box 10 20 30)
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := floats("box", args, "x", "y", "z")
		if err != nil {
			return zygo.SexpNull, err
		}
		shape, err := s.kernel.Box(v[0], v[1], v[2])
		ts, err := s.primitive(naming.OpBox, shape, err)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		return &sexpShape{ts: ts}, nil
	})

	// -----------------------------------------------------------------------
	// (cylinder height radius)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := floats("cylinder", args, "height", "radius")
		if err != nil {
			return zygo.SexpNull, err
		}
		shape, err := s.kernel.Cylinder(v[0], v[1])
		ts, err := s.primitive(naming.OpCylinder, shape, err)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return &sexpShape{ts: ts}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere radius)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := floats("sphere", args, "radius")
		if err != nil {
			return zygo.SexpNull, err
		}
		shape, err := s.kernel.Sphere(v[0])
		ts, err := s.primitive(naming.OpSphere, shape, err)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return &sexpShape{ts: ts}, nil
	})

	// -----------------------------------------------------------------------
	// (translate shape x y z) and (rotate shape rx ry rz)
	// -----------------------------------------------------------------------
	transforms := []struct {
		name  string
		op    naming.Operation
		apply func(*kernel.Shape, float64, float64, float64) (*kernel.Shape, *kernel.History)
	}{
		{"translate", naming.OpTranslate, s.kernel.Translate},
		{"rotate", naming.OpRotate, s.kernel.Rotate},
	}
	for _, tr := range transforms {
		env.AddFunction(tr.name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 4 {
				return zygo.SexpNull, fmt.Errorf("%s requires a shape and 3 numbers, got %d arguments", tr.name, len(args))
			}
			base, err := toShape(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: shape: %w", tr.name, err)
			}
			v, err := floats(tr.name, args[1:], "x", "y", "z")
			if err != nil {
				return zygo.SexpNull, err
			}
			shape, h := tr.apply(base.Shape(), v[0], v[1], v[2])
			ts, err := s.modified(tr.op, base, shape, h)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", tr.name, err)
			}
			return &sexpShape{ts: ts}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (compound a b ...)
	// -----------------------------------------------------------------------
	env.AddFunction("compound", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("compound requires at least one shape")
		}
		parts := make([]*naming.TopoShape, len(args))
		for i, a := range args {
			ts, err := toShape(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("compound: part %d: %w", i, err)
			}
			parts[i] = ts
		}
		ts, err := s.compound(parts)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("compound: %w", err)
		}
		return &sexpShape{ts: ts}, nil
	})

	// -----------------------------------------------------------------------
	// (sub-count shape :face)
	//
	// Registered with underscores; the preprocessor converts kebab-case.
	// -----------------------------------------------------------------------
	env.AddFunction("sub_count", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("sub-count requires a shape and a kind")
		}
		ts, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sub-count: shape: %w", err)
		}
		k, err := toKind(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sub-count: %w", err)
		}
		return &zygo.SexpInt{Val: int64(ts.Shape().Count(k))}, nil
	})

	// -----------------------------------------------------------------------
	// (subshape shape :edge 3)
	// -----------------------------------------------------------------------
	env.AddFunction("subshape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("subshape requires a shape, a kind and an index")
		}
		ts, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("subshape: shape: %w", err)
		}
		k, err := toKind(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("subshape: %w", err)
		}
		i, err := toInt(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("subshape: index: %w", err)
		}
		sub := kernel.Subshape{Kind: k, Index: i}
		if !ts.Shape().Contains(sub) {
			return zygo.SexpNull, fmt.Errorf("subshape: %s %d out of range (%d)", k, i, ts.Shape().Count(k))
		}
		return &sexpSub{owner: ts, sub: sub}, nil
	})

	// -----------------------------------------------------------------------
	// (extract sub) -> shape holding the sub-shape and its boundary
	// -----------------------------------------------------------------------
	env.AddFunction("extract", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("extract requires a sub-shape")
		}
		sub, err := toSub(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extract: %w", err)
		}
		ts, err := s.extract(sub.owner, sub.sub)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extract: %w", err)
		}
		return &sexpShape{ts: ts}, nil
	})

	// -----------------------------------------------------------------------
	// (ref-hash sub) -> decimal identity token
	// -----------------------------------------------------------------------
	env.AddFunction("ref_hash", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("ref-hash requires a sub-shape")
		}
		sub, err := toSub(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("ref-hash: %w", err)
		}
		return &zygo.SexpStr{S: sub.reference().HashString()}, nil
	})

	// -----------------------------------------------------------------------
	// (describe sub) -> full lineage text
	// -----------------------------------------------------------------------
	env.AddFunction("describe", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("describe requires a sub-shape")
		}
		sub, err := toSub(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("describe: %w", err)
		}
		return &zygo.SexpStr{S: sub.reference().String()}, nil
	})

	// -----------------------------------------------------------------------
	// (find-ref shape "1234") -> the sub-shape whose reference hashes to 1234
	// -----------------------------------------------------------------------
	env.AddFunction("find_ref", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("find-ref requires a shape and a hash")
		}
		ts, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("find-ref: shape: %w", err)
		}
		hs, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("find-ref: hash: %w", err)
		}
		h, err := strconv.ParseUint(hs, 10, 64)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("find-ref: hash: %w", err)
		}
		sub, ok := ts.Find(h)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("find-ref: no sub-shape references %s", hs)
		}
		return &sexpSub{owner: ts, sub: sub}, nil
	})

	// -----------------------------------------------------------------------
	// (defshape "name" expr)
	// -----------------------------------------------------------------------
	env.AddFunction("defshape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defshape requires a name and a body expression")
		}
		shapeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defshape: name: %w", err)
		}
		if shapeName == "" {
			return zygo.SexpNull, fmt.Errorf("defshape: empty name")
		}
		ts, err := toShape(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defshape: %w", err)
		}
		s.model.define(shapeName, ts)
		return args[1], nil
	})

	// -----------------------------------------------------------------------
	// (shape "name")
	// -----------------------------------------------------------------------
	env.AddFunction("shape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("shape requires a name argument")
		}
		shapeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("shape: name: %w", err)
		}
		ts := s.model.Shape(shapeName)
		if ts == nil {
			return zygo.SexpNull, fmt.Errorf("shape: no shape named %q", shapeName)
		}
		return &sexpShape{ts: ts}, nil
	})
}
