package compiler

import (
	"time"

	"github.com/achilleasa/lanetrace/asset/compiler/bvh"
	"github.com/achilleasa/lanetrace/asset/compiler/input"
	"github.com/achilleasa/lanetrace/asset/scene"
	"github.com/achilleasa/lanetrace/geometry"
	"github.com/achilleasa/lanetrace/log"
	"github.com/achilleasa/lanetrace/simd"
	"github.com/achilleasa/lanetrace/types"
)

// Leafs with up to this many primitives are never split further.
const minPrimitivesPerLeaf = simd.Width

// A primitive tagged with the ids recorded when a ray hits it.
type primitiveRef struct {
	*input.Primitive
	meshIndex int32
	primIndex int32
}

type sceneCompiler struct {
	parsedScene    *input.Scene
	optimizedScene *scene.Scene
	logger         log.Logger
	err            error
}

// Compile a scene representation parsed by a scene reader into a BVH whose
// leafs hold packed Triangle4 blocks.
func Compile(parsedScene *input.Scene) (*scene.Scene, error) {
	compiler := &sceneCompiler{
		parsedScene:    parsedScene,
		optimizedScene: &scene.Scene{},
		logger:         log.New("scene compiler"),
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene")

	err := compiler.partitionGeometry()
	if err != nil {
		return nil, err
	}

	compiler.setupCamera()

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.optimizedScene, nil
}

// Partition all primitives into a single BVH tree and pack the primitives of
// each leaf into Triangle4 blocks.
func (sc *sceneCompiler) partitionGeometry() error {
	primCount := sc.parsedScene.PrimitiveCount()
	if primCount == 0 {
		return scene.ErrEmptyScene
	}

	start := time.Now()
	sc.logger.Infof("building BVH tree (%d meshes, %d primitives)", len(sc.parsedScene.Meshes), primCount)

	volList := make([]bvh.BoundedVolume, 0, primCount)
	sc.optimizedScene.MeshNames = make([]string, len(sc.parsedScene.Meshes))
	for meshIndex, mesh := range sc.parsedScene.Meshes {
		sc.optimizedScene.MeshNames[meshIndex] = mesh.Name
		for primIndex, prim := range mesh.Primitives {
			volList = append(volList, &primitiveRef{
				Primitive: prim,
				meshIndex: int32(meshIndex),
				primIndex: int32(primIndex),
			})
		}
	}

	sc.optimizedScene.Triangles = make([]geometry.Triangle4, 0, (primCount+simd.Width-1)/simd.Width)
	sc.optimizedScene.BvhNodeList = bvh.Build(volList, minPrimitivesPerLeaf, sc.packLeaf, bvh.SurfaceAreaHeuristic)
	sc.optimizedScene.PrimitiveCount = primCount
	if sc.err != nil {
		return sc.err
	}

	sc.logger.Infof(
		"packed %d primitives into %d blocks (%3.1f%% fill) in %d ms",
		primCount, len(sc.optimizedScene.Triangles), 100*sc.optimizedScene.LeafFill(),
		time.Since(start).Nanoseconds()/1e6,
	)
	return nil
}

// Pack leaf primitives into consecutive Triangle4 blocks and point the leaf to them.
func (sc *sceneCompiler) packLeaf(node *scene.BvhNode, workList []bvh.BoundedVolume) {
	firstBlock := len(sc.optimizedScene.Triangles)

	tris := make([]geometry.Triangle, 0, simd.Width)
	for offset := 0; offset < len(workList); offset += simd.Width {
		tris = tris[:0]
		for _, item := range workList[offset:min(offset+simd.Width, len(workList))] {
			ref := item.(*primitiveRef)
			tris = append(tris, geometry.Triangle{
				V0:  ref.Vertices[0],
				V1:  ref.Vertices[1],
				V2:  ref.Vertices[2],
				ID0: ref.meshIndex,
				ID1: ref.primIndex,
			})
		}

		block, err := geometry.NewTriangle4(tris)
		if err != nil && sc.err == nil {
			sc.err = err
		}
		sc.optimizedScene.Triangles = append(sc.optimizedScene.Triangles, block)
	}

	node.SetPrimitives(uint32(firstBlock), uint32(len(sc.optimizedScene.Triangles)-firstBlock))
}

// Copy the parsed camera settings. If the scene does not place the camera,
// position it so that the whole scene is in view.
func (sc *sceneCompiler) setupCamera() {
	pc := sc.parsedScene.Camera
	cam := scene.NewCamera(pc.FOV)
	cam.Eye, cam.Look, cam.Up = pc.Eye, pc.Look, pc.Up

	if !pc.Placed {
		bbox := sc.optimizedScene.BBox()
		center := bbox[0].Add(bbox[1]).Mul(0.5)
		radius := bbox[1].Sub(bbox[0]).Len()
		cam.Look = center
		cam.Eye = center.Add(types.Vec3{0, 0, radius * 1.5})
		sc.logger.Infof("placing camera at %v looking at %v", cam.Eye, cam.Look)
	}

	sc.optimizedScene.Camera = cam
}
