package policy

// GetBuiltinPolicies returns all built-in policies. None of them block: they
// surface conditions a keeper should look at before confirming.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		duplicateNamePolicy(),
		nameWhitespacePolicy(),
		seniorIntakePolicy(),
		isolationPressurePolicy(),
		enclosureCrowdingPolicy(),
	}
}

// duplicateNamePolicy flags intakes whose name is already used by a housed
// primate, in isolation or in an enclosure.
// Name lookup returns the first match, so a second primate with the same
// name becomes hard to address.
func duplicateNamePolicy() Policy {
	return Policy{
		Name:        "duplicate-name",
		Description: "Warns when an intake reuses the name of a primate already in the sanctuary",
		Severity:    SeverityWarning,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"intake", "naming"},
		Rego: `package sanctuary.duplicate_name

import rego.v1

deny contains violation if {
	input.operation == "intake"
	some existing in input.sanctuary.names
	existing == input.primate.name
	violation := {
		"message": sprintf("a primate named %s is already in the sanctuary", [input.primate.name]),
		"severity": "warning",
		"remediation": "choose a distinct name so lookups by name stay unambiguous",
	}
}
`,
	}
}

// nameWhitespacePolicy flags names with leading or trailing whitespace.
func nameWhitespacePolicy() Policy {
	return Policy{
		Name:        "name-whitespace",
		Description: "Warns when a name has leading or trailing whitespace",
		Severity:    SeverityWarning,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"intake", "naming"},
		Rego: `package sanctuary.name_whitespace

import rego.v1

deny contains violation if {
	input.operation == "intake"
	name := input.primate.name
	trim_space(name) != name
	violation := {
		"message": sprintf("name %q has leading or trailing whitespace", [name]),
		"severity": "warning",
		"remediation": "names are stored exactly as entered",
	}
}
`,
	}
}

// seniorIntakePolicy notes intakes of older primates.
func seniorIntakePolicy() Policy {
	return Policy{
		Name:        "senior-intake",
		Description: "Notes intakes of primates older than 40",
		Severity:    SeverityInfo,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"intake", "care"},
		Rego: `package sanctuary.senior_intake

import rego.v1

deny contains violation if {
	input.operation == "intake"
	input.primate.age > 40
	violation := {
		"message": sprintf("%s is %d years old and may need a senior care plan", [input.primate.name, input.primate.age]),
		"severity": "info",
	}
}
`,
	}
}

// isolationPressurePolicy warns when an intake takes the last free unit.
func isolationPressurePolicy() Policy {
	return Policy{
		Name:        "isolation-pressure",
		Description: "Warns when an intake would occupy the last free isolation unit",
		Severity:    SeverityWarning,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"intake", "capacity"},
		Rego: `package sanctuary.isolation_pressure

import rego.v1

deny contains violation if {
	input.operation == "intake"
	input.sanctuary.isolation_used + 1 == input.sanctuary.isolation_total
	violation := {
		"message": sprintf("admitting %s fills the last free isolation unit", [input.primate.name]),
		"severity": "warning",
		"remediation": "move medicated primates to their enclosures to free units",
	}
}
`,
	}
}

// enclosureCrowdingPolicy notes transfers into an enclosure already holding
// many primates.
func enclosureCrowdingPolicy() Policy {
	return Policy{
		Name:        "enclosure-crowding",
		Description: "Notes transfers into an enclosure with 10 or more residents",
		Severity:    SeverityInfo,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"transfer", "capacity"},
		Rego: `package sanctuary.enclosure_crowding

import rego.v1

deny contains violation if {
	input.operation == "transfer"
	residents := object.get(input.sanctuary.enclosures, input.primate.species, 0)
	residents >= 10
	violation := {
		"message": sprintf("the %s enclosure already holds %d primates", [input.primate.species, residents]),
		"severity": "info",
	}
}
`,
	}
}
