package loaders

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-realtime-restir/pkg/core"
	"github.com/df07/go-realtime-restir/pkg/log"
	"github.com/df07/go-realtime-restir/pkg/scene"
)

var logger = log.New("loaders")

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format   string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version  string // Usually "1.0"
	Elements []PLYElement

	// Property detection flags for the vertex element
	HasNormals   bool
	HasTexCoords bool
}

// PLYElement is one element declaration with its properties, in file order
type PLYElement struct {
	Name       string
	Count      int
	Properties []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// Element returns the element with the given name
func (h *PLYHeader) Element(name string) (PLYElement, bool) {
	for _, e := range h.Elements {
		if e.Name == name {
			return e, true
		}
	}
	return PLYElement{}, false
}

// LoadPLY loads a PLY file as a mesh. Polygons are fan-triangulated.
func LoadPLY(filename string) (scene.Mesh, error) {
	startTime := time.Now()

	file, err := os.Open(filename)
	if err != nil {
		return scene.Mesh{}, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	mesh, err := ReadPLY(file)
	if err != nil {
		return scene.Mesh{}, fmt.Errorf("%s: %w", filename, err)
	}

	logger.Infof("loaded %s: %d vertices, %d triangles in %v",
		filename, len(mesh.Positions), mesh.TriangleCount(), time.Since(startTime))
	return mesh, nil
}

// ReadPLY reads a PLY stream as a mesh
func ReadPLY(r io.Reader) (scene.Mesh, error) {
	reader := bufio.NewReaderSize(r, 1024*1024)

	header, err := parsePLYHeader(reader)
	if err != nil {
		return scene.Mesh{}, fmt.Errorf("failed to parse PLY header: %w", err)
	}

	var values valueReader
	switch header.Format {
	case "binary_little_endian":
		values = &binaryReader{r: reader, order: binary.LittleEndian}
	case "binary_big_endian":
		values = &binaryReader{r: reader, order: binary.BigEndian}
	case "ascii":
		scanner := bufio.NewScanner(reader)
		scanner.Split(bufio.ScanWords)
		values = &asciiReader{scanner: scanner}
	default:
		return scene.Mesh{}, fmt.Errorf("unsupported PLY format: %q", header.Format)
	}

	var mesh scene.Mesh
	for _, element := range header.Elements {
		switch element.Name {
		case "vertex":
			err = readVertices(values, element, header, &mesh)
		case "face":
			err = readFaces(values, element, &mesh)
		default:
			err = skipElement(values, element)
		}
		if err != nil {
			return scene.Mesh{}, err
		}
	}

	for _, idx := range mesh.Indices {
		if int(idx) >= len(mesh.Positions) {
			return scene.Mesh{}, fmt.Errorf("face index %d out of range for %d vertices", idx, len(mesh.Positions))
		}
	}
	return mesh, nil
}

// parsePLYHeader parses the header and leaves the reader at the first data byte
func parsePLYHeader(reader *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}

	magic, err := reader.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, fmt.Errorf("missing ply magic number")
	}

	for {
		raw, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("error reading header: %w", err)
		}
		line := strings.TrimSpace(raw)
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) >= 3 {
				header.Format = parts[1]
				header.Version = parts[2]
			}
		case "comment", "obj_info":
			// Ignore comments
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element definition: %q", line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("invalid element count: %s", parts[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return nil, fmt.Errorf("property before any element")
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("failed to parse property: %w", err)
			}
			current := &header.Elements[len(header.Elements)-1]
			current.Properties = append(current.Properties, prop)

			if current.Name == "vertex" {
				switch prop.Name {
				case "nx", "ny", "nz":
					header.HasNormals = true
				case "u", "s", "texture_u", "v", "t", "texture_v":
					header.HasTexCoords = true
				}
			}
		}
	}

	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("invalid property definition")
	}

	prop := PLYProperty{}

	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("invalid list property definition")
		}
		prop.IsList = true
		prop.ListType = parts[1]
		prop.DataType = parts[2]
		prop.Name = parts[3]
	} else {
		prop.Type = parts[0]
		prop.Name = parts[1]
	}

	if getTypeSize(prop.Type) == 0 && !prop.IsList {
		return PLYProperty{}, fmt.Errorf("unsupported data type: %s", prop.Type)
	}
	if prop.IsList && (getTypeSize(prop.ListType) == 0 || getTypeSize(prop.DataType) == 0) {
		return PLYProperty{}, fmt.Errorf("unsupported list types: %s %s", prop.ListType, prop.DataType)
	}
	return prop, nil
}

func readVertices(values valueReader, element PLYElement, header *PLYHeader, mesh *scene.Mesh) error {
	mesh.Positions = make([]core.Vec3, 0, element.Count)
	if header.HasNormals {
		mesh.Normals = make([]core.Vec3, 0, element.Count)
	}
	if header.HasTexCoords {
		mesh.UVs = make([]core.Vec2, 0, element.Count)
	}

	for i := 0; i < element.Count; i++ {
		var p, n core.Vec3
		var uv core.Vec2
		for _, prop := range element.Properties {
			if prop.IsList {
				if err := skipList(values, prop); err != nil {
					return fmt.Errorf("vertex %d: %w", i, err)
				}
				continue
			}

			value, err := values.read(prop.Type)
			if err != nil {
				return fmt.Errorf("failed to read vertex %d property %s: %w", i, prop.Name, err)
			}
			switch prop.Name {
			case "x":
				p.X = value
			case "y":
				p.Y = value
			case "z":
				p.Z = value
			case "nx":
				n.X = value
			case "ny":
				n.Y = value
			case "nz":
				n.Z = value
			case "u", "s", "texture_u":
				uv.X = value
			case "v", "t", "texture_v":
				uv.Y = value
			}
		}

		mesh.Positions = append(mesh.Positions, p)
		if header.HasNormals {
			mesh.Normals = append(mesh.Normals, n)
		}
		if header.HasTexCoords {
			mesh.UVs = append(mesh.UVs, uv)
		}
	}
	return nil
}

func readFaces(values valueReader, element PLYElement, mesh *scene.Mesh) error {
	mesh.Indices = make([]uint32, 0, element.Count*3)

	polygon := make([]uint32, 0, 4)
	for i := 0; i < element.Count; i++ {
		for _, prop := range element.Properties {
			if !prop.IsList {
				if _, err := values.read(prop.Type); err != nil {
					return fmt.Errorf("failed to skip face property %s at face %d: %w", prop.Name, i, err)
				}
				continue
			}
			if prop.Name != "vertex_indices" && prop.Name != "vertex_index" {
				if err := skipList(values, prop); err != nil {
					return fmt.Errorf("face %d: %w", i, err)
				}
				continue
			}

			count, err := values.read(prop.ListType)
			if err != nil {
				return fmt.Errorf("failed to read face vertex count at face %d: %w", i, err)
			}
			if count < 3 {
				return fmt.Errorf("face %d has %v vertices, need at least 3", i, count)
			}

			polygon = polygon[:0]
			for k := 0; k < int(count); k++ {
				idx, err := values.read(prop.DataType)
				if err != nil {
					return fmt.Errorf("failed to read face indices at face %d: %w", i, err)
				}
				if idx < 0 {
					return fmt.Errorf("negative vertex index at face %d", i)
				}
				polygon = append(polygon, uint32(idx))
			}

			// Fan triangulation
			for k := 1; k+1 < len(polygon); k++ {
				mesh.Indices = append(mesh.Indices, polygon[0], polygon[k], polygon[k+1])
			}
		}
	}
	return nil
}

func skipElement(values valueReader, element PLYElement) error {
	for i := 0; i < element.Count; i++ {
		for _, prop := range element.Properties {
			var err error
			if prop.IsList {
				err = skipList(values, prop)
			} else {
				_, err = values.read(prop.Type)
			}
			if err != nil {
				return fmt.Errorf("failed to skip %s %d: %w", element.Name, i, err)
			}
		}
	}
	return nil
}

func skipList(values valueReader, prop PLYProperty) error {
	count, err := values.read(prop.ListType)
	if err != nil {
		return err
	}
	for k := 0; k < int(count); k++ {
		if _, err := values.read(prop.DataType); err != nil {
			return err
		}
	}
	return nil
}

// getTypeSize returns the size in bytes of a PLY data type, 0 if unknown
func getTypeSize(dataType string) int {
	switch dataType {
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}

// valueReader reads one scalar of a PLY data type from the body
type valueReader interface {
	read(dataType string) (float64, error)
}

type binaryReader struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binaryReader) read(dataType string) (float64, error) {
	size := getTypeSize(dataType)
	if size == 0 {
		return 0, fmt.Errorf("unsupported data type: %s", dataType)
	}
	data := b.buf[:size]
	if _, err := io.ReadFull(b.r, data); err != nil {
		return 0, err
	}

	switch dataType {
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(data))), nil
	case "double", "float64":
		return math.Float64frombits(b.order.Uint64(data)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(data))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(data)), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(data))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(data)), nil
	case "char", "int8":
		return float64(int8(data[0])), nil
	default: // uchar, uint8
		return float64(data[0]), nil
	}
}

type asciiReader struct {
	scanner *bufio.Scanner
}

func (a *asciiReader) read(dataType string) (float64, error) {
	if !a.scanner.Scan() {
		if err := a.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	value, err := strconv.ParseFloat(a.scanner.Text(), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", dataType, a.scanner.Text())
	}
	return value, nil
}
