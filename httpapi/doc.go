// Package httpapi is the thin HTTP transport in front of package handler:
// form-encoded POST /create, GET /read, DELETE /delete. It owns exactly
// one thing handler deliberately does not: mapping kverrors kinds to HTTP
// status codes.
package httpapi
