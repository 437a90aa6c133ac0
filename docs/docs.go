// Package docs holds the OpenAPI description served at /api/openapi.yaml.
package docs

import _ "embed"

//go:embed openapi.yaml
var OpenAPI []byte
