// Package view is the Ebitengine half of patchbay: it implements the
// core's Renderer interface with Kage shaders and offscreen textures,
// runs live window sessions, and records patches to image sequences.
//
// The split keeps the core package free of GPU and windowing concerns.
// Everything here runs on the Ebitengine game loop goroutine.
package view
