// Package openapi describes a form's HTTP contract as an OpenAPI 3.0 document.
// The compiled submission schema is published as the FormData component and
// the validate, submit and _openapi operations reference it.
package openapi
