package entity

import (
	"encoding/json"
	"time"

	"github.com/dellqs/qsintake/constants"
)

// DrawingInfo describes one classified drawing page. Instances are created
// once per classified page and belong to exactly one DocumentEntry.
type DrawingInfo struct {
	FilePath             string                `json:"file_path"`
	PageNumber           int                   `json:"page_number"`
	DrawingType          constants.DrawingType `json:"drawing_type"`
	DrawingNumber        string                `json:"drawing_number,omitempty"`
	DrawingTitle         string                `json:"drawing_title,omitempty"`
	Revision             string                `json:"revision,omitempty"`
	Scale                string                `json:"scale,omitempty"`
	DimensionsPresent    bool                  `json:"dimensions_present"`
	AnnotationsPresent   bool                  `json:"annotations_present"`
	Confidence           float64               `json:"confidence"`
	ImagePath            string                `json:"image_path,omitempty"`
	MeasurementPotential []string              `json:"measurement_potential,omitempty"`
	Notes                []string              `json:"notes,omitempty"`
}

// LocationInfo holds geographic location data. It starts as a partial
// extraction result and is enriched by the geocoder; populated fields are
// never overwritten (first write wins).
type LocationInfo struct {
	Address        string  `json:"address,omitempty"`
	Postcode       string  `json:"postcode,omitempty"`
	Latitude       float64 `json:"latitude,omitempty"`
	Longitude      float64 `json:"longitude,omitempty"`
	LocalAuthority string  `json:"local_authority,omitempty"`
	Region         string  `json:"region,omitempty"`
	Country        string  `json:"country,omitempty"`
	What3Words     string  `json:"what3words,omitempty"`
}

// ProjectMetadata is the merged project information extracted from document
// text. RawExtractedFields preserves the raw pattern matches for audit.
type ProjectMetadata struct {
	ProjectName         string            `json:"project_name,omitempty"`
	ProjectNumber       string            `json:"project_number,omitempty"`
	ClientName          string            `json:"client_name,omitempty"`
	Architect           string            `json:"architect,omitempty"`
	StructuralEngineer  string            `json:"structural_engineer,omitempty"`
	Location            *LocationInfo     `json:"location,omitempty"`
	IssueDate           *time.Time        `json:"issue_date,omitempty"`
	Stage               string            `json:"stage,omitempty"`
	BuildingType        string            `json:"building_type,omitempty"`
	GrossInternalAreaM2 float64           `json:"gross_internal_area_m2,omitempty"`
	Storeys             int               `json:"storeys,omitempty"`
	RawExtractedFields  map[string]string `json:"raw_extracted_fields,omitempty"`
}

// DocumentEntry wraps one source file in the manifest.
type DocumentEntry struct {
	FileName      string                   `json:"file_name"`
	FilePath      string                   `json:"file_path"`
	FileType      string                   `json:"file_type"`
	FileSizeBytes int64                    `json:"file_size_bytes"`
	PageCount     int                      `json:"page_count"`
	Drawings      []DrawingInfo            `json:"drawings"`
	Status        constants.DocumentStatus `json:"status"`
	HashMD5       string                   `json:"hash_md5,omitempty"`
	ReceivedDate  time.Time                `json:"received_date"`
}

// DocumentManifest is the canonical "what we received" record for one
// project, persisted as project_manifest.json.
type DocumentManifest struct {
	ProjectID       string           `json:"project_id"`
	CreatedAt       time.Time        `json:"created_at"`
	SourceDirectory string           `json:"source_directory,omitempty"`
	Documents       []DocumentEntry  `json:"documents"`
	Metadata        *ProjectMetadata `json:"metadata,omitempty"`
	TotalPages      int              `json:"total_pages"`
	TotalDrawings   int              `json:"total_drawings"`
}

// ToJSON renders the manifest for persistence.
func (m *DocumentManifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
