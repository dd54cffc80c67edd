package constants

// StepStatus is the canonical outcome of one pipeline step.
type StepStatus string

// Stable values (store these exact strings in outputs).
const (
	StepSuccess StepStatus = "success"
	StepPartial StepStatus = "partial" // some results, but with warnings
	StepFailed  StepStatus = "failed"  // terminal failure, no usable data
	StepSkipped StepStatus = "skipped"
)

// OK reports whether the step produced usable data.
func (s StepStatus) OK() bool {
	return s == StepSuccess || s == StepPartial
}

// DocumentStatus is the lifecycle status of a document in the package.
type DocumentStatus string

const (
	DocPresent    DocumentStatus = "present"
	DocMissing    DocumentStatus = "missing"
	DocIncomplete DocumentStatus = "incomplete"
	DocSuperseded DocumentStatus = "superseded"
)

// Severity grades a missing item. Critical is reserved for the two
// foundational drawing types (floor plan, site plan).
type Severity string

const (
	SeverityCritical  Severity = "critical"
	SeverityImportant Severity = "important"
	SeverityMinor     Severity = "minor"
)

// CompletenessStatus summarizes a document package.
type CompletenessStatus string

const (
	StatusComplete     CompletenessStatus = "complete"
	StatusIncomplete   CompletenessStatus = "incomplete"
	StatusCriticalGaps CompletenessStatus = "critical_gaps"
)

// Recommendation is the proceed decision for a package.
type Recommendation string

const (
	Proceed            Recommendation = "proceed"
	ProceedWithCaution Recommendation = "proceed_with_caution"
	Hold               Recommendation = "hold"
)

// ConfidenceTier grades how reliably an element can be measured.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// MatchQuality grades a geocoding hit.
type MatchQuality string

const (
	MatchExact       MatchQuality = "exact"
	MatchPartial     MatchQuality = "partial"
	MatchApproximate MatchQuality = "approximate"
)

// ExtractionQuality grades a PDF text layer.
type ExtractionQuality string

const (
	QualityGood    ExtractionQuality = "good"
	QualityPartial ExtractionQuality = "partial"
	QualityPoor    ExtractionQuality = "poor"
)
