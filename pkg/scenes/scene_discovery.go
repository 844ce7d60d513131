package scenes

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/df07/go-realtime-restir/pkg/log"
)

var logger = log.New("scenes")

// ErrUnknownScene is returned when a scene id matches no built-in scene or model
var ErrUnknownScene = errors.New("scenes: unknown scene")

// BuiltinGroup is the group name of the scenes compiled into the binary
const BuiltinGroup = "Built-in Scenes"

// ModelDirs are the directories searched for PLY models, in order
var ModelDirs = []string{"models", "../models"}

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier
	Name        string `json:"name"`        // Scene name
	DisplayName string `json:"displayName"` // UI display name
	Description string `json:"description"` // Optional description
	Group       string `json:"group"`       // Grouping category
	Type        string `json:"type"`        // "builtin" or "ply"
	FilePath    string `json:"filePath"`    // Path to the model (ply type only)
	Variant     string `json:"variant"`     // Variant name (optional)
}

// SceneGroup represents a group of related scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse represents the complete response for /api/scenes
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

type builtin struct {
	info  SceneInfo
	build func(...CameraConfig) *Scene
}

var builtins = []builtin{
	{SceneInfo{ID: "default", Name: "Default Scene", Description: "Box, pyramid and icosahedron lit by two point lights"}, NewDefaultScene},
	{SceneInfo{ID: "cornell-box", Name: "Cornell Box", Description: "Closed box with colored walls and an emissive ceiling panel"}, NewCornellScene},
	{SceneInfo{ID: "sphere-grid", Name: "Sphere Grid", Description: "Grid of spheres under a ring of 32 colored point lights"}, NewSphereGridScene},
	{SceneInfo{ID: "textures", Name: "Textures", Description: "Textured shapes, an alpha-masked cutout and an animated screen"}, NewTextureScene},
	{SceneInfo{ID: "sky", Name: "Sky", Description: "Empty plain under the atmosphere with no point lights"}, NewSkyScene},
}

// ListBuiltinScenes returns the built-in scenes in display order
func ListBuiltinScenes() []SceneInfo {
	infos := make([]SceneInfo, len(builtins))
	for i, b := range builtins {
		info := b.info
		info.DisplayName = info.Name
		info.Group = BuiltinGroup
		info.Type = "builtin"
		infos[i] = info
	}
	return infos
}

// ListPLYScenes scans the model directory and returns the discovered models
func ListPLYScenes() ([]SceneInfo, error) {
	modelsDir := findModelsDir()
	if modelsDir == "" {
		// No models directory found, return empty list
		return []SceneInfo{}, nil
	}

	files, err := filepath.Glob(filepath.Join(modelsDir, "*.ply"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan models directory: %w", err)
	}

	var scenes []SceneInfo
	for _, filePath := range files {
		sceneInfo, err := ParsePLYMetadata(filePath)
		if err != nil {
			// Log warning but continue processing other files
			logger.Warningf("failed to parse metadata for %s: %v", filePath, err)
			continue
		}
		scenes = append(scenes, sceneInfo)
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})

	return scenes, nil
}

func findModelsDir() string {
	for _, path := range ModelDirs {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
	}
	return ""
}

// ParsePLYMetadata extracts metadata from "comment Key: value" lines in a
// PLY header
func ParsePLYMetadata(filePath string) (SceneInfo, error) {
	filename := filepath.Base(filePath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	// Fallback values
	sceneInfo := SceneInfo{
		ID:       "ply:" + nameWithoutExt,
		Name:     titleCase(nameWithoutExt),
		Group:    "PLY Models",
		Type:     "ply",
		FilePath: filePath,
	}

	file, err := os.Open(filePath)
	if err != nil {
		return sceneInfo, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "end_header" {
			break
		}

		content, ok := strings.CutPrefix(line, "comment ")
		if !ok {
			continue
		}
		if value, ok := strings.CutPrefix(content, "Scene:"); ok {
			sceneInfo.Name = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(content, "Variant:"); ok {
			sceneInfo.Variant = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(content, "Description:"); ok {
			sceneInfo.Description = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(content, "Group:"); ok {
			sceneInfo.Group = strings.TrimSpace(value)
		}
	}

	if sceneInfo.Variant != "" {
		sceneInfo.DisplayName = fmt.Sprintf("%s - %s", sceneInfo.Name, sceneInfo.Variant)
	} else {
		sceneInfo.DisplayName = sceneInfo.Name
	}

	return sceneInfo, scanner.Err()
}

// ListAllScenes returns both built-in and PLY scenes, grouped by category
func ListAllScenes() (ScenesResponse, error) {
	var response ScenesResponse

	plyScenes, err := ListPLYScenes()
	if err != nil {
		return response, fmt.Errorf("failed to list PLY scenes: %w", err)
	}
	allScenes := append(ListBuiltinScenes(), plyScenes...)

	groupMap := make(map[string][]SceneInfo)
	for _, scene := range allScenes {
		groupMap[scene.Group] = append(groupMap[scene.Group], scene)
	}

	// Built-in first, then alphabetical
	var groupNames []string
	for groupName := range groupMap {
		if groupName != BuiltinGroup {
			groupNames = append(groupNames, groupName)
		}
	}
	sort.Strings(groupNames)

	response.Groups = append(response.Groups, SceneGroup{Name: BuiltinGroup, Scenes: groupMap[BuiltinGroup]})
	for _, groupName := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{
			Name:   groupName,
			Scenes: groupMap[groupName],
		})
	}

	return response, nil
}

// Load builds the scene with the given id. Ids of the form "ply:name" load
// models/name.ply.
func Load(id string, cameraOverrides ...CameraConfig) (*Scene, error) {
	for _, b := range builtins {
		if b.info.ID == id {
			return b.build(cameraOverrides...), nil
		}
	}

	if name, ok := strings.CutPrefix(id, "ply:"); ok && name != "" && !strings.ContainsAny(name, `/\`) {
		if modelsDir := findModelsDir(); modelsDir != "" {
			path := filepath.Join(modelsDir, name+".ply")
			if _, err := os.Stat(path); err == nil {
				return NewPLYScene(path, cameraOverrides...)
			}
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownScene, id)
}

// titleCase converts a filename-style string to title case
// e.g., "cornell-empty" -> "Cornell Empty"
func titleCase(s string) string {
	// Replace hyphens and underscores with spaces
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	// Title case each word
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}
