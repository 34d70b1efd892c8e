// Package schema describes forms declaratively so they can be kept in YAML or
// JSON files, derived from OpenAPI documents, linted, and turned into live
// form trees by form.Build.
package schema
