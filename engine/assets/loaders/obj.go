package loaders

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

// objFace is an already triangulated face, 0-based indices, -1 when absent.
type objFace struct {
	v, vt, vn [3]int
}

// DecodeOBJ parses a Wavefront .obj into a single indexed mesh. Every object
// and group of the file ends up in the same geometry; materials are ignored.
func DecodeOBJ(raw []byte) (*metadata.MeshData, error) {
	var positions, normals []mgl32.Vec3
	var uvs []mgl32.Vec2
	var faces []objFace
	name := ""

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v", "vn":
			vec, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("obj line %d: %w", lineNo, err)
			}
			if fields[0] == "v" {
				positions = append(positions, mgl32.Vec3{vec[0], vec[1], vec[2]})
			} else {
				normals = append(normals, mgl32.Vec3{vec[0], vec[1], vec[2]})
			}

		case "vt":
			vec, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("obj line %d: %w", lineNo, err)
			}
			uvs = append(uvs, mgl32.Vec2{vec[0], vec[1]})

		case "o":
			if name == "" && len(fields) > 1 {
				name = fields[1]
			}

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("obj line %d: face needs at least 3 vertices", lineNo)
			}
			refs := make([][3]int, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				ref, err := parseFaceVertex(tok, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", lineNo, err)
				}
				refs = append(refs, ref)
			}
			// fan triangulation 0-1-2, 0-2-3, ...
			for i := 1; i+1 < len(refs); i++ {
				a, b, c := refs[0], refs[i], refs[i+1]
				faces = append(faces, objFace{
					v:  [3]int{a[0], b[0], c[0]},
					vt: [3]int{a[1], b[1], c[1]},
					vn: [3]int{a[2], b[2], c[2]},
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("obj: %w", err)
	}
	if len(faces) == 0 {
		return nil, fmt.Errorf("obj: no faces found")
	}

	mesh := buildOBJMesh(faces, positions, normals, uvs)
	mesh.Name = name
	mesh.ComputeExtents()
	return mesh, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseFaceVertex parses "v", "v/vt", "v//vn" or "v/vt/vn". OBJ indices are
// 1-based; negative ones count back from the last element read so far.
func parseFaceVertex(tok string, nv, nvt, nvn int) ([3]int, error) {
	res := [3]int{-1, -1, -1}
	counts := [3]int{nv, nvt, nvn}
	parts := strings.Split(tok, "/")
	if len(parts) > 3 {
		return res, fmt.Errorf("malformed face vertex '%s'", tok)
	}
	for i, part := range parts {
		if part == "" {
			if i == 0 {
				return res, fmt.Errorf("face vertex '%s' has no position", tok)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return res, fmt.Errorf("malformed face vertex '%s'", tok)
		}
		switch {
		case n > 0:
			n--
		case n < 0:
			n = counts[i] + n
		default:
			return res, fmt.Errorf("face vertex '%s' uses index 0", tok)
		}
		if n < 0 || n >= counts[i] {
			return res, fmt.Errorf("face vertex '%s' is out of range", tok)
		}
		res[i] = n
	}
	return res, nil
}

func buildOBJMesh(faces []objFace, positions, normals []mgl32.Vec3, uvs []mgl32.Vec2) *metadata.MeshData {
	type key struct{ v, vt, vn int }
	vertMap := map[key]uint32{}
	mesh := &metadata.MeshData{}
	missingNormals := false

	for _, face := range faces {
		for c := 0; c < 3; c++ {
			k := key{face.v[c], face.vt[c], face.vn[c]}
			if idx, ok := vertMap[k]; ok {
				mesh.Indices = append(mesh.Indices, idx)
				continue
			}
			v := metadata.Vertex3D{Position: positions[k.v]}
			if k.vt >= 0 {
				v.Texcoord = uvs[k.vt]
			}
			if k.vn >= 0 {
				v.Normal = normals[k.vn]
			} else {
				missingNormals = true
			}
			idx := uint32(len(mesh.Vertices))
			mesh.Vertices = append(mesh.Vertices, v)
			vertMap[k] = idx
			mesh.Indices = append(mesh.Indices, idx)
		}
	}

	if missingNormals {
		generateNormals(mesh)
	}
	return mesh
}

// generateNormals writes area weighted face normals into vertices without one.
func generateNormals(mesh *metadata.MeshData) {
	accum := make([]mgl32.Vec3, len(mesh.Vertices))
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		i0, i1, i2 := mesh.Indices[i], mesh.Indices[i+1], mesh.Indices[i+2]
		p0 := mesh.Vertices[i0].Position
		e1 := mesh.Vertices[i1].Position.Sub(p0)
		e2 := mesh.Vertices[i2].Position.Sub(p0)
		n := e1.Cross(e2)
		accum[i0] = accum[i0].Add(n)
		accum[i1] = accum[i1].Add(n)
		accum[i2] = accum[i2].Add(n)
	}
	for i := range mesh.Vertices {
		if mesh.Vertices[i].Normal != (mgl32.Vec3{}) {
			continue
		}
		if accum[i].Len() > 0 {
			mesh.Vertices[i].Normal = accum[i].Normalize()
		} else {
			mesh.Vertices[i].Normal = mgl32.Vec3{0, 1, 0}
		}
	}
}
