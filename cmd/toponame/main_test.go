package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/chazu/toponame/pkg/engine"
)

const boxScript = `(defshape "b" (box 10 10 10))`

const movedScript = `(defshape "b" (translate (box 10 10 10) 5 0 0))`

// runCmd executes the root command with args and returns stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
	return path
}

// firstHash evaluates src and returns the hash of the first reference of
// shape name.
func firstHash(t *testing.T, src, name string) string {
	t.Helper()
	eng := engine.NewEngine(engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	m, evalErrs, err := eng.Evaluate(src)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("Evaluate: %v %v", err, evalErrs)
	}
	return m.Shape(name).References()[0].Ref.HashString()
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "toponame ") {
		t.Errorf("version output = %q", out)
	}
}

func TestEvalCmdSummarizesShapes(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "box.lisp", boxScript)

	out, err := runCmd(t, "eval", script, "--in-memory")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !strings.Contains(out, "b: 8 vertices, 12 edges, 6 faces") {
		t.Errorf("eval output = %q, want shape summary", out)
	}
	if !strings.Contains(out, "1 steps") {
		t.Errorf("eval output = %q, want step count", out)
	}
}

func TestEvalCmdYAML(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "box.lisp", boxScript)

	out, err := runCmd(t, "eval", script, "--in-memory", "--refs", "-o", "yaml")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	var v modelView
	if err := yaml.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("yaml.Unmarshal: %v\n%s", err, out)
	}
	if len(v.Shapes) != 1 || len(v.Shapes[0].References) != 26 {
		t.Fatalf("unexpected model view: %+v", v)
	}
	if v.Steps[0].Operation != "Box" || v.Steps[0].New != 26 {
		t.Errorf("step = %+v, want Box with 26 New", v.Steps[0])
	}
	if got := v.Shapes[0].References[0]; got.Kind != "vertex" || got.Type != "New" {
		t.Errorf("first reference = %+v", got)
	}
}

func TestEvalCmdScriptError(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "bad.lisp", `(box 1 2)`)

	if _, err := runCmd(t, "eval", script, "--in-memory"); err == nil {
		t.Fatal("expected evaluation error")
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	if _, err := runCmd(t, "version", "-o", "json"); err == nil {
		t.Fatal("expected error for unknown output format")
	}
}

func TestBoxCmd(t *testing.T) {
	out, err := runCmd(t, "box", "1", "2", "3", "--in-memory")
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	if !strings.Contains(out, "box: 8 vertices, 12 edges, 6 faces") {
		t.Errorf("box output = %q", out)
	}
	if n := strings.Count(out, "New Box"); n != 26 {
		t.Errorf("box output lists %d New Box references, want 26", n)
	}

	if _, err := runCmd(t, "box", "1", "x", "3", "--in-memory"); err == nil {
		t.Error("expected error for invalid dimension")
	}
}

func TestShowCmd(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "moved.lisp", movedScript)

	out, err := runCmd(t, "show", script, "b", "--in-memory")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if n := strings.Count(out, "Modified Translate"); n != 26 {
		t.Errorf("show output lists %d Modified references, want 26:\n%s", n, out)
	}

	if _, err := runCmd(t, "show", script, "missing", "--in-memory"); err == nil {
		t.Error("expected error for unknown shape")
	}
}

func TestSaveVerifyResolve(t *testing.T) {
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "db")
	script := writeScript(t, dir, "moved.lisp", movedScript)

	if _, err := runCmd(t, "eval", script, "--save", "--store", storeDir); err != nil {
		t.Fatalf("eval --save: %v", err)
	}

	out, err := runCmd(t, "tables", "--store", storeDir)
	if err != nil {
		t.Fatalf("tables: %v", err)
	}
	if out != "b\n" {
		t.Errorf("tables output = %q, want %q", out, "b\n")
	}

	out, err = runCmd(t, "verify", script, "b", "--store", storeDir)
	if err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ok: 26 reference(s) of b unchanged") {
		t.Errorf("verify output = %q", out)
	}

	// The same box without the move names its sub-shapes differently.
	plain := writeScript(t, dir, "plain.lisp", boxScript)
	out, err = runCmd(t, "verify", plain, "b", "--store", storeDir)
	if err == nil {
		t.Fatalf("expected verify to fail, output:\n%s", out)
	}
	if !strings.Contains(out, "changed: vertex 0") {
		t.Errorf("verify output = %q, want changed vertex 0", out)
	}

	h := firstHash(t, movedScript, "b")
	out, err = runCmd(t, "resolve", h, "--store", storeDir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasPrefix(out, h+"\n") {
		t.Errorf("resolve output = %q, want it to start with %s", out, h)
	}
	if strings.Count(out, "\n\n") != 1 {
		t.Errorf("resolve output = %q, want the moved vertex and its base", out)
	}

	out, err = runCmd(t, "resolve", h, "--store", storeDir, "-o", "yaml")
	if err != nil {
		t.Fatalf("resolve yaml: %v", err)
	}
	var views []lineageView
	if err := yaml.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if len(views) != 2 || views[0].Type != "Modified" || views[1].Type != "New" {
		t.Errorf("lineage = %+v", views)
	}
	if len(views[0].Bases) != 1 || views[0].Bases[0] != views[1].Hash {
		t.Errorf("lineage bases = %+v", views)
	}

	if _, err := runCmd(t, "resolve", "12345", "--store", storeDir); err == nil {
		t.Error("expected error for unknown hash")
	}
	if _, err := runCmd(t, "resolve", "abc", "--store", storeDir); err == nil {
		t.Error("expected error for malformed hash")
	}
}

func TestMeshCmd(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "parts.lisp", `
(def b (box 10 10 10))
(defshape "b" b)
(defshape "ball" (sphere 4))
(defshape "face" (extract (subshape b :face 0)))
`)
	stl := filepath.Join(dir, "parts.stl")

	out, err := runCmd(t, "mesh", script, "--cells", "20", "--stl", stl, "--in-memory")
	if err != nil {
		t.Fatalf("mesh: %v", err)
	}
	if !strings.Contains(out, "b: ") || !strings.Contains(out, "ball: ") {
		t.Errorf("mesh output = %q, want both solids", out)
	}
	if strings.Contains(out, "face: ") {
		t.Errorf("mesh output = %q, extracted face has no solid", out)
	}
	if info, err := os.Stat(stl); err != nil || info.Size() <= 84 {
		t.Errorf("STL file not written: %v", err)
	}

	out, err = runCmd(t, "mesh", script, "ball", "--cells", "20", "-o", "yaml", "--in-memory")
	if err != nil {
		t.Fatalf("mesh ball: %v", err)
	}
	var views []meshView
	if err := yaml.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if len(views) != 1 || views[0].Name != "ball" || views[0].Triangles == 0 {
		t.Errorf("mesh views = %+v", views)
	}

	if _, err := runCmd(t, "mesh", script, "face", "--in-memory"); err == nil {
		t.Error("expected error meshing a shape without a solid")
	}
}
