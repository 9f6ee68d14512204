package archive

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
)

// packageJSON is the subset of package.json used for framework detection.
type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// frameworkMarkers maps package.json dependency names to framework labels,
// checked in order.
var frameworkMarkers = []struct {
	dep  string
	name string
}{
	{"react", "React"},
	{"vue", "Vue"},
	{"svelte", "Svelte"},
	{"@angular/core", "Angular"},
}

// DetectFramework inspects the extracted project and returns a framework
// label, or "" when nothing is recognized.
func DetectFramework(appDir string) string {
	data, err := os.ReadFile(filepath.Join(appDir, "package.json"))
	if err == nil {
		var pkg packageJSON
		if json.Unmarshal(data, &pkg) == nil {
			for _, m := range frameworkMarkers {
				if _, ok := pkg.Dependencies[m.dep]; ok {
					return m.name
				}
				if _, ok := pkg.DevDependencies[m.dep]; ok {
					return m.name
				}
			}
		}
	}

	if _, err := os.Stat(filepath.Join(appDir, "index.html")); err == nil {
		return "HTML/CSS/JS"
	}
	return ""
}

// entryDirs are the build output directories checked for an index.html,
// in preference order. "." means the project root itself.
var entryDirs = []string{"dist", "build", "public", "out", "."}

// FindEntryFile locates the app's entry point relative to appDir,
// defaulting to index.html when nothing is found.
func FindEntryFile(appDir string) string {
	for _, d := range entryDirs {
		candidate := filepath.Join(appDir, d, "index.html")
		if _, err := os.Stat(candidate); err == nil {
			if d == "." {
				return "index.html"
			}
			return d + "/index.html"
		}
	}
	return "index.html"
}

// Stats returns the file count and total byte size of an extracted app.
func Stats(appDir string) (count int, size int64) {
	filepath.WalkDir(appDir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		count++
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return count, size
}
