package reader

import (
	"fmt"
	"strings"

	"github.com/achilleasa/lanetrace/asset"
	"github.com/achilleasa/lanetrace/asset/scene"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// Read scene from file. Wavefront files (optionally gzipped) are compiled
// on the fly while zip files are expected to contain a compiled scene.
func ReadScene(filename string) (*scene.Scene, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	reader, err := readerFor(res.LogicalPath())
	if err != nil {
		return nil, err
	}
	return reader.Read(res)
}

// Select reader based on file extension.
func readerFor(path string) (Reader, error) {
	switch {
	case strings.HasSuffix(path, ".obj"):
		return newWavefrontReader(), nil
	case strings.HasSuffix(path, ".zip"):
		return newZipSceneReader(), nil
	}
	return nil, fmt.Errorf("readScene: unsupported file format for %q", path)
}
