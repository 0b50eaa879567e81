// Package policy evaluates admission policies for the sanctuary using Open
// Policy Agent (OPA).
//
// Policies are Rego modules that define a deny set. Each element of the set
// is either a message string or an object with message, severity and an
// optional remediation. The engine evaluates every enabled policy against an
// Input describing the operation (intake or transfer), the primate and the
// current occupancy.
//
// # Architecture
//
//  1. Engine - compiles policies and evaluates them
//  2. Loader - reads policies from files and directories and watches them
//  3. Types - Policy, Input, Violation and Result
//  4. Built-in Policies - advisory checks bundled with the binary
//
// # Usage
//
//	engine, err := policy.NewEngine(logger, policy.WithMode(policy.ModeEnforcing))
//	if err != nil {
//	    return err
//	}
//
//	result, err := engine.Evaluate(ctx, policy.IntakeInput(req, reg.Names(), reg.Occupancy()))
//	if err != nil {
//	    return err
//	}
//	if !result.Allowed {
//	    for _, v := range result.Violations {
//	        fmt.Printf("%s: %s\n", v.Policy, v.Message)
//	    }
//	}
//
// # Modes
//
// In enforcing mode any error or critical violation denies the operation.
// In advisory mode violations are reported but Allowed is always true. Info
// and warning violations never deny.
//
// # Built-in Policies
//
//  1. duplicate-name - intake reuses a name already in the sanctuary
//  2. name-whitespace - name has leading or trailing whitespace
//  3. senior-intake - primate is older than 40
//  4. isolation-pressure - intake fills the last free isolation unit
//  5. enclosure-crowding - transfer into an enclosure with 10 or more residents
//
// # Custom Policies
//
//	# Tamarins are admitted only when small enough for the isolation units.
//	package sanctuary.custom.tamarin_size
//
//	import rego.v1
//
//	deny contains violation if {
//	    input.operation == "intake"
//	    input.primate.species == "TAMARIN"
//	    input.primate.size > 40
//	    violation := {"message": "tamarin too large for isolation", "severity": "error"}
//	}
//
// A .rego file is named after its base name and takes its description from
// the leading comment block. A .json file carries a serialized Policy.
package policy
