// Package csg converts parametric scene trees into solid meshes by running
// boolean operations on an external native geometry engine.
//
// # Overview
//
// A scene tree of primitives (cube, sphere, cylinder), booleans (union,
// difference, intersection) and transforms is converted bottom-up: primitives
// are tessellated directly, booleans and transforms round-trip through the
// native engine, and every result comes back as a plain mesh.Mesh that owns
// no native resources.
//
// # Quick Start
//
//	s, err := pipeline.New(ctx)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	res, err := s.Convert(ctx, scenetree.NewDifference(
//	    scenetree.Cube(geom.V3(2, 2, 2), true),
//	    scenetree.Sphere(1, 32),
//	))
//
// # Architecture
//
// Packages, leaves first:
//   - engine: native engine boundary, registry and the process-wide loader
//   - engine/bsp: pure Go software engine (BSP-tree booleans)
//   - resource: managed native handles, accounting and the finalization safety net
//   - material: conflict-free material ID ranges and external/native mappings
//   - convert: mesh to native object round trip
//   - ops: union/subtract/intersect with metrics and a result cache
//   - scenetree: scene tree model and YAML scene documents
//   - pipeline: conversion sessions, recursive conversion and the subtree cache
//   - cmd/csgdemo: command-line converter
//
// # Resource Ownership
//
// Every native object is wrapped by a resource.Manager and released exactly
// once by the layer that created it. Objects never escape the ops and
// pipeline packages; callers only see meshes. A garbage-collector cleanup
// releases handles whose owner forgot to, and logs a warning when it does.
//
// # Logging
//
// csg is silent by default. Call [SetLogger] to enable structured logging.
package csg

// Version information
const (
	// Version is the current version of the library
	Version = "0.3.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 3

	// VersionPatch is the patch version
	VersionPatch = 0
)
