// Command server runs the music source script runtime as an HTTP service.
//
// Configuration comes from the environment (KANADE_ prefix); see
// internal/infrastructure/config for the full set of variables.
package main
