// Package sanctuary implements the intake core of a primate sanctuary.
//
// # Overview
//
// Every new arrival moves through the same sequence:
//
//  1. Intake - validate the arrival and place it in a free isolation unit
//  2. Medication - record medical care while the primate is isolated
//  3. Transfer - release it from isolation and move it into the enclosure
//     for its species
//
// The Registry owns all housing and is the only place these rules are
// enforced. Presentation and orchestration live in other packages.
//
// # Housing
//
// Housing comes in two kinds:
//
//   - Isolation unit: holds exactly one primate of any species
//   - Enclosure: holds any number of primates of a single species
//
// A Registry provisions DefaultIsolationUnits isolation units (configurable
// with WithIsolationUnits) and one enclosure per Species at construction.
// No housing is added or removed afterwards.
//
// # Flags
//
// A Primate carries two monotonic flags. Isolated is set on first placement
// in an isolation unit. Medicated is set by Registry.Medicate. Neither is ever
// cleared. TransferToEnclosure requires both.
//
// # Error Classification
//
// Registry operations return *Error values with one of four classes:
//
//   - validation: a malformed intake request; nothing was created
//   - capacity: no free isolation unit, or a full enclosure
//   - precondition: the primate is not yet isolated or medicated
//   - not_found: the primate is not in the expected housing
//
// Use IsValidation, IsCapacity, IsPrecondition and IsNotFound to classify.
//
// # Concurrency
//
// All Registry methods are safe for concurrent use. One RWMutex guards the
// whole registry.
package sanctuary
