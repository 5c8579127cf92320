// Package errors provides the classified error primitives used across emailbuilder.
//
// Stages, collaborators and CLI commands build errors with a category (config,
// template, style, image, inline, ...), a severity and a retry hint so that the
// CLI adapter can choose an exit code and log level without string matching.
//
// Example usage:
//
//	err := errors.StyleError("sass compilation failed").
//		WithContext("entry", cfg.Sass).
//		WithCause(runErr).
//		Build()
package errors
