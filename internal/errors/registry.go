package errors

import (
	"sort"
	"sync"
)

// ErrorTemplate is the registered text for an error code.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// DocBase is prefixed to an error code to build its documentation link.
const DocBase = "https://squid.dev/docs/errors/"

func docURL(code string) string {
	return DocBase + code
}

var (
	registryMu sync.RWMutex
	registry   = map[string]ErrorTemplate{
		// Route errors (E200-E209)
		"E200": {
			Category: CategoryRoute,
			Message:  "Duplicate route",
			Detail:   "Two modules compile to the same route key. Rename or remove one of them.",
		},
		"E201": {
			Category: CategoryRoute,
			Message:  "Ambiguous dynamic segment",
			Detail:   "A directory may hold only one dynamic segment name. Requests cannot tell {id} and {slug} apart at the same level.",
		},
		"E202": {
			Category: CategoryRoute,
			Message:  "Duplicate route parameter",
			Detail:   "The same parameter name appears twice in one route path, so one value would overwrite the other.",
		},
		"E203": {
			Category: CategoryRoute,
			Message:  "Invalid route path",
			Detail:   "The module path has an empty segment, an empty parameter name, or lies outside the pages directory.",
		},
		"E204": {
			Category: CategoryRoute,
			Message:  "Props module next to an API route",
			Detail:   "Server-side props only apply to pages. API handlers read their own data.",
		},
		"E205": {
			Category: CategoryRoute,
			Message:  "Module identifier collision",
			Detail:   "Two module paths differ only in characters that flatten to '_', so logs and errors could not tell them apart.",
		},

		// Build errors (E210-E219)
		"E210": {
			Category: CategoryBuild,
			Message:  "Cannot read build manifest",
			Detail:   "routes.json is missing or malformed. Run `squid build` first.",
		},
		"E211": {
			Category: CategoryBuild,
			Message:  "Compilation failed",
			Detail:   "The bundler exited with an error while compiling a module.",
		},

		// Request errors (E220-E229)
		"E220": {
			Category: CategoryRequest,
			Message:  "Malformed props export",
			Detail:   "A .props module must export getServerSideProps as a function returning props or a redirect.",
		},
		"E221": {
			Category: CategoryRequest,
			Message:  "Module load failed",
			Detail:   "The compiled module could not be loaded after a retry.",
		},

		// Config errors (E230-E239)
		"E230": {
			Category: CategoryConfig,
			Message:  "Cannot parse squid.json",
			Detail:   "The configuration file is not valid JSON or has a field of the wrong type.",
		},
		"E231": {
			Category: CategoryConfig,
			Message:  "Invalid configuration",
			Detail:   "A configuration value is out of range or missing.",
		},
		"E232": {
			Category: CategoryConfig,
			Message:  "Project not found",
			Detail:   "No squid.json was found in this directory or any parent.",
		},

		// Artifact errors (E240-E249)
		"E240": {
			Category: CategoryArtifact,
			Message:  "Artifact publish failed",
			Detail:   "Uploading the build output to the artifact store failed.",
		},

		// Scaffolding errors (E250-E259)
		"E250": {
			Category: CategoryCLI,
			Message:  "Unknown project template",
			Detail:   "squid init was asked for a template that does not exist.",
		},
		"E251": {
			Category: CategoryCLI,
			Message:  "Project already exists",
			Detail:   "The target directory already holds a squid project and would be overwritten.",
		},
	}
)

// Codes returns every registered code in ascending order.
func Codes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for code.
func Lookup(code string) (ErrorTemplate, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[code]
	return t, ok
}

// Register adds or replaces a template.
func Register(code string, tmpl ErrorTemplate) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = tmpl
}
