package reader

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/lanetrace/asset/scene"
	"github.com/achilleasa/lanetrace/asset/scene/writer"
	"github.com/google/go-cmp/cmp"
)

const cubeObj = `
o cube
v -1 -1 -1
v  1 -1 -1
v  1  1 -1
v -1  1 -1
v -1 -1  1
v  1 -1  1
v  1  1  1
v -1  1  1
f 1 2 3 4
f 5 8 7 6
f 1 5 6 2
f 2 6 7 3
f 3 7 8 4
f 5 1 4 8
`

func TestReadCompileWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	objFile := filepath.Join(dir, "cube.obj")
	writeFile(t, objFile, cubeObj)

	compiled, err := ReadScene(objFile)
	if err != nil {
		t.Fatal(err)
	}

	if compiled.PrimitiveCount != 12 {
		t.Fatalf("expected 12 primitives; got %d", compiled.PrimitiveCount)
	}
	if diff := cmp.Diff([]string{"cube"}, compiled.MeshNames); diff != "" {
		t.Fatalf("mesh name mismatch (-want +got):\n%s", diff)
	}

	zipFile := filepath.Join(dir, "cube.zip")
	if err = writer.WriteScene(compiled, zipFile); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReadScene(zipFile)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(compiled, loaded); diff != "" {
		t.Fatalf("loaded scene does not match compiled scene (-want +got):\n%s", diff)
	}
}

func TestReadGzippedWavefront(t *testing.T) {
	dir := t.TempDir()
	gzFile := filepath.Join(dir, "cube.obj.gz")

	f, err := os.Create(gzFile)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err = zw.Write([]byte(cubeObj)); err != nil {
		t.Fatal(err)
	}
	zw.Close()
	f.Close()

	sc, err := ReadScene(gzFile)
	if err != nil {
		t.Fatal(err)
	}
	if sc.PrimitiveCount != 12 {
		t.Fatalf("expected 12 primitives; got %d", sc.PrimitiveCount)
	}
}

func TestReadEmptyScene(t *testing.T) {
	dir := t.TempDir()
	objFile := filepath.Join(dir, "empty.obj")
	writeFile(t, objFile, "v 0 0 0\n")

	_, err := ReadScene(objFile)
	if err != scene.ErrEmptyScene {
		t.Fatalf("expected to get ErrEmptyScene; got %v", err)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	plyFile := filepath.Join(dir, "scene.ply")
	writeFile(t, plyFile, "ply\n")

	_, err := ReadScene(plyFile)
	if err == nil {
		t.Fatal("expected to get an unsupported format error")
	}
}
