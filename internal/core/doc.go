// Package core provides the domain models for shader header generation.
//
// # Design Principles
//
// All structures in this package adhere to the following constraints:
//
//  1. No implied fields that could affect determinism (e.g., timestamps)
//  2. Every listing is explicitly sorted; filesystem order is never trusted
//  3. Stage sources are carried as raw bytes and never mutated
//
// # Core Types
//
// Directory: One directory visited below the scan root, with its file names.
// ShaderProgram: A directory classified into the five pipeline stage roles.
// StageSource: The raw text of one stage file, owned by the emitter reading it.
//
// The scan root itself is never a program; every directory below it is a
// candidate, regardless of depth.
package core
