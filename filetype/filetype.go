package filetype

import (
	"path/filepath"
	"strings"
)

// Type identifies a supported language or file format.
// It is detected once per path from its extension and never changes.
type Type int

const (
	Unknown Type = iota
	JavaScript
	TypeScript
	Jsx
	Tsx
	JSON
	Css
	Scss
	Less
	Sass
	HTML
	Vue
	Svelte
	Astro
	Yaml
	Markdown
	Dockerfile
	Go
	Rust
	Python
	Kotlin
	Lua
	Shell
	C
	Cpp
	Java
	Proto
	CSharp
)

var names = map[Type]string{
	Unknown:    "unknown",
	JavaScript: "javascript",
	TypeScript: "typescript",
	Jsx:        "jsx",
	Tsx:        "tsx",
	JSON:       "json",
	Css:        "css",
	Scss:       "scss",
	Less:       "less",
	Sass:       "sass",
	HTML:       "html",
	Vue:        "vue",
	Svelte:     "svelte",
	Astro:      "astro",
	Yaml:       "yaml",
	Markdown:   "markdown",
	Dockerfile: "dockerfile",
	Go:         "go",
	Rust:       "rust",
	Python:     "python",
	Kotlin:     "kotlin",
	Lua:        "lua",
	Shell:      "shell",
	C:          "c",
	Cpp:        "cpp",
	Java:       "java",
	Proto:      "proto",
	CSharp:     "csharp",
}

func (t Type) String() string {
	if name, ok := names[t]; ok {
		return name
	}

	return "unknown"
}

// byExtension maps a lower-cased file extension (without the leading dot) to
// its Type.
var byExtension = map[string]Type{
	"js":       JavaScript,
	"cjs":      JavaScript,
	"mjs":      JavaScript,
	"ts":       TypeScript,
	"mts":      TypeScript,
	"jsx":      Jsx,
	"mjsx":     Jsx,
	"tsx":      Tsx,
	"json":     JSON,
	"css":      Css,
	"scss":     Scss,
	"less":     Less,
	"sass":     Sass,
	"html":     HTML,
	"htm":      HTML,
	"vue":      Vue,
	"svelte":   Svelte,
	"astro":    Astro,
	"yaml":     Yaml,
	"yml":      Yaml,
	"md":       Markdown,
	"markdown": Markdown,
	"go":       Go,
	"rs":       Rust,
	"py":       Python,
	"kt":       Kotlin,
	"kts":      Kotlin,
	"lua":      Lua,
	"sh":       Shell,
	"bash":     Shell,
	"zsh":      Shell,
	"c":        C,
	"h":        C,
	"cc":       Cpp,
	"cpp":      Cpp,
	"cxx":      Cpp,
	"hpp":      Cpp,
	"java":     Java,
	"proto":    Proto,
	"cs":       CSharp,
}

// Detect determines the Type for path based on its extension, falling back to
// well known file names (e.g. Dockerfile) when there is no extension match.
// It is a pure string mapping and performs no I/O.
func Detect(path string) Type {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if t, ok := byExtension[strings.ToLower(ext)]; ok {
		return t
	}

	switch filepath.Base(path) {
	case "Dockerfile":
		return Dockerfile
	}

	return Unknown
}
