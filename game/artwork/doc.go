// Package artwork produces the image a puzzle is cut from.
//
// A Generator takes a free-text subject and returns an opaque image
// reference, normally a "data:<mime>;base64,..." URI. The puzzle engine never
// looks inside the reference.
//
// Implementations:
//   - Gemini: remote generation through google.golang.org/genai
//   - Procedural: an offline, deterministic pattern seeded by the prompt
//   - Static: a fixed reference or error, for tests and demos
//   - FileCache: wraps another Generator and stores results on disk
//
// Errors:
//
// ErrMissingCredential is returned before any remote call when no API key is
// configured. ErrNoImage means the remote call succeeded but carried no
// image. Remote failures are wrapped in ErrGeneration. None of them is
// retried.
package artwork
