package policy

import (
	"time"

	"github.com/primatehaven/sanctuary/pkg/sanctuary"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for warnings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for errors that block operations in enforcing mode.
	SeverityError Severity = "error"

	// SeverityCritical is for violations that must never be admitted in enforcing mode.
	SeverityCritical Severity = "critical"
)

// Blocking reports whether a violation of this severity blocks an operation
// in enforcing mode.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Mode decides whether blocking violations deny the operation.
type Mode string

const (
	// ModeEnforcing denies operations with error or critical violations.
	ModeEnforcing Mode = "enforcing"

	// ModeAdvisory reports every violation but denies nothing.
	ModeAdvisory Mode = "advisory"
)

// Operation names evaluated by policies.
const (
	OperationIntake   = "intake"
	OperationTransfer = "transfer"
)

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code. It must define a deny set.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Builtin marks policies shipped with the binary.
	Builtin bool `json:"builtin,omitempty"`

	// Source is the file the policy was loaded from, if any.
	Source string `json:"source,omitempty"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Primate is the name of the primate being evaluated.
	Primate string `json:"primate,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`

	// Remediation suggests a fix.
	Remediation string `json:"remediation,omitempty"`
}

// Result is the outcome of evaluating every enabled policy.
type Result struct {
	// Allowed indicates if the operation may proceed.
	Allowed bool `json:"allowed"`

	// Violations lists error and critical violations.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists info and warning violations, which never block.
	Warnings []Violation `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// Errors lists policies that failed to evaluate.
	Errors []string `json:"errors,omitempty"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// All returns violations followed by warnings.
func (r *Result) All() []Violation {
	out := make([]Violation, 0, len(r.Violations)+len(r.Warnings))
	out = append(out, r.Violations...)
	return append(out, r.Warnings...)
}

// Input is the document policies see as input.
type Input struct {
	// Operation is intake or transfer.
	Operation string `json:"operation"`

	// Primate describes the candidate.
	Primate PrimateInput `json:"primate"`

	// Sanctuary describes current occupancy.
	Sanctuary SanctuaryInput `json:"sanctuary"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`
}

// PrimateInput is the policy view of a primate or an intake request.
type PrimateInput struct {
	Name      string `json:"name"`
	Species   string `json:"species"`
	Sex       string `json:"sex"`
	Size      int    `json:"size"`
	Weight    int    `json:"weight"`
	Age       int    `json:"age"`
	Food      string `json:"food"`
	Isolated  bool   `json:"isolated"`
	Medicated bool   `json:"medicated"`
}

// SanctuaryInput is the policy view of registry occupancy.
type SanctuaryInput struct {
	Names          []string       `json:"names"`
	IsolationUsed  int            `json:"isolation_used"`
	IsolationTotal int            `json:"isolation_total"`
	Enclosures     map[string]int `json:"enclosures"`
}

// IntakeInput builds the input for an intake request.
func IntakeInput(req sanctuary.IntakeRequest, names []string, occ sanctuary.Occupancy) Input {
	return Input{
		Operation: OperationIntake,
		Primate: PrimateInput{
			Name:    req.Name,
			Species: string(req.Species),
			Sex:     string(req.Sex),
			Size:    req.Size,
			Weight:  req.Weight,
			Age:     req.Age,
			Food:    string(req.Food),
		},
		Sanctuary: sanctuaryInput(names, occ),
		Timestamp: time.Now(),
	}
}

// TransferInput builds the input for moving p to its enclosure.
func TransferInput(p *sanctuary.Primate, names []string, occ sanctuary.Occupancy) Input {
	return Input{
		Operation: OperationTransfer,
		Primate: PrimateInput{
			Name:      p.Name(),
			Species:   string(p.Species()),
			Sex:       string(p.Sex()),
			Size:      p.Size(),
			Weight:    p.Weight(),
			Age:       p.Age(),
			Food:      string(p.Food()),
			Isolated:  p.Isolated(),
			Medicated: p.Medicated(),
		},
		Sanctuary: sanctuaryInput(names, occ),
		Timestamp: time.Now(),
	}
}

func sanctuaryInput(names []string, occ sanctuary.Occupancy) SanctuaryInput {
	enclosures := make(map[string]int, len(occ.Enclosures))
	for sp, n := range occ.Enclosures {
		enclosures[string(sp)] = n
	}
	if names == nil {
		names = []string{}
	}
	return SanctuaryInput{
		Names:          names,
		IsolationUsed:  occ.IsolationUsed,
		IsolationTotal: occ.IsolationTotal,
		Enclosures:     enclosures,
	}
}
