package scene

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/achilleasa/lanetrace/geometry"
	"github.com/achilleasa/lanetrace/simd"
	"github.com/achilleasa/lanetrace/types"
	"github.com/olekukonko/tablewriter"
)

// Returned when compiling or loading a scene without any primitives.
var ErrEmptyScene = errors.New("scene: scene does not contain any primitives")

// Bvh nodes are comprised of two Vec3 and two multipurpose int32 parameters
// whose value depends on the node type:
//
//   - For interior nodes they are both >0 and point to the L/R child nodes
//   - For leafs, LData is <= 0 and points to the first Triangle4 block while
//     RData is >0 and contains the number of blocks in the leaf.
type BvhNode struct {
	Min   types.Vec3
	LData int32

	Max   types.Vec3
	RData int32
}

// Set bounding box.
func (n *BvhNode) SetBBox(bbox [2]types.Vec3) {
	n.Min = bbox[0]
	n.Max = bbox[1]
}

// Set left and right child node indices.
func (n *BvhNode) SetChildNodes(left, right uint32) {
	n.LData = int32(left)
	n.RData = int32(right)
}

// Get left and right child node indices.
func (n *BvhNode) GetChildNodes() (left, right uint32) {
	return uint32(n.LData), uint32(n.RData)
}

// Set first Triangle4 block index and block count.
func (n *BvhNode) SetPrimitives(firstBlockIndex, count uint32) {
	n.LData = -int32(firstBlockIndex)
	n.RData = int32(count)
}

// Get first Triangle4 block index and block count.
func (n *BvhNode) GetPrimitives() (firstBlockIndex, count uint32) {
	return uint32(-n.LData), uint32(n.RData)
}

// Returns true if this is a leaf node.
func (n *BvhNode) IsLeaf() bool {
	return n.LData <= 0
}

// A compiled scene. All fields are read-only once the scene has been
// compiled so a Scene can be traced from any number of goroutines.
type Scene struct {
	BvhNodeList []BvhNode

	// Leaf geometry packed in blocks of simd.Width triangles. Each
	// triangle's ID0 is its mesh index and ID1 its primitive index within
	// the mesh.
	Triangles []geometry.Triangle4

	MeshNames      []string
	PrimitiveCount int

	// The scene camera.
	Camera *Camera
}

// Get scene bounding box.
func (sc *Scene) BBox() [2]types.Vec3 {
	if len(sc.BvhNodeList) == 0 {
		return [2]types.Vec3{}
	}
	return [2]types.Vec3{sc.BvhNodeList[0].Min, sc.BvhNodeList[0].Max}
}

// Get the ratio of used triangle slots to available slots.
func (sc *Scene) LeafFill() float32 {
	if len(sc.Triangles) == 0 {
		return 0
	}
	return float32(sc.PrimitiveCount) / float32(len(sc.Triangles)*simd.Width)
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count", "Size"})
	table.Append([]string{"Geometry", "---", "", fmtSize(sc.Triangles, sc.BvhNodeList)})
	table.Append([]string{"", "Meshes", fmt.Sprint(len(sc.MeshNames)), ""})
	table.Append([]string{"", "Primitives", fmt.Sprint(sc.PrimitiveCount), ""})
	table.Append([]string{"", "Triangle blocks", fmt.Sprint(len(sc.Triangles)), fmtSize(sc.Triangles)})
	table.Append([]string{"", "Block fill", fmt.Sprintf("%3.1f%%", 100*sc.LeafFill()), ""})
	table.Append([]string{"", "BVH nodes", fmt.Sprint(len(sc.BvhNodeList)), fmtSize(sc.BvhNodeList)})
	if sc.Camera != nil {
		table.Append([]string{" ", " ", " ", " "})
		table.Append([]string{"Camera", "Eye", sc.Camera.Eye.String(), ""})
		table.Append([]string{"", "Look", sc.Camera.Look.String(), ""})
		table.Append([]string{"", "FOV", fmt.Sprintf("%3.1f", sc.Camera.FOV), ""})
	}
	table.SetFooter([]string{"Total", " ", " ", strings.TrimLeft(fmtSize(sc.Triangles, sc.BvhNodeList), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
