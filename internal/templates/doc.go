// Package templates provides project scaffolding for squid init.
//
// # Available Templates
//
//   - minimal: a single server-rendered page
//   - full: pages with server-side props, an API route and static files
//   - api: API routes without pages
//
// # Usage
//
//	tmpl, err := templates.Get("full")
//	if err != nil {
//	    return err
//	}
//	if err := tmpl.Create(projectDir, config); err != nil {
//	    return err
//	}
//
// # Template Variables
//
//	{{.ProjectName}}     - Name of the project
//	{{.ModulePath}}      - Go module path
//	{{.Description}}     - Project description
package templates
