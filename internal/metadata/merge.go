package metadata

import (
	"fmt"
	"strings"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/common"
	"github.com/dellqs/qsintake/internal/entity"
)

// priorityPages is how many leading pages get the first extraction pass.
// Title blocks and cover sheets almost always sit at the front of a set.
const priorityPages = 3

// ExtractFromPages runs extraction over the first few pages, and only falls
// back to the whole document when the priority pass comes back thin. Fields
// found on priority pages win over full-text matches.
func (e *Extractor) ExtractFromPages(pages []string, source string) (*Result, error) {
	if len(pages) == 0 {
		return nil, common.NewFatalError("EMPTY_INPUT", "no pages provided for extraction", common.ErrEmptyInput)
	}

	n := priorityPages
	if len(pages) < n {
		n = len(pages)
	}
	priorityText := strings.Join(pages[:n], "\n")

	priority, err := e.Extract(priorityText, source)
	if err != nil {
		return nil, err
	}
	if priority.Confidence >= 0.5 || len(pages) <= n {
		return priority, nil
	}

	full, err := e.Extract(strings.Join(pages, "\n"), source)
	if err != nil {
		// Priority pass already succeeded; keep it rather than failing the run.
		e.logger.Warn("metadata.fulltext.failed", "source", source, "error", err)
		return priority, nil
	}

	merged := mergeMetadata(priority.Metadata, full.Metadata)
	confidence := calculateConfidence(&merged)

	res := &Result{
		Metadata:   merged,
		Confidence: confidence,
		Status:     constants.StepSuccess,
		Warnings:   append(priority.Warnings, full.Warnings...),
	}
	if source != "" {
		res.Sources = []string{source, fmt.Sprintf("%s (full text)", source)}
	}
	if confidence < 0.2 {
		res.Status = constants.StepPartial
	}

	e.logger.Info("metadata.merge.ok",
		"source", source,
		"priority_confidence", priority.Confidence,
		"merged_confidence", confidence,
	)
	return res, nil
}

// mergeMetadata overlays the full-text pass underneath the priority pass:
// any field the priority pass filled is kept as-is.
func mergeMetadata(priority, full entity.ProjectMetadata) entity.ProjectMetadata {
	out := priority

	if out.ProjectName == "" {
		out.ProjectName = full.ProjectName
	}
	if out.ProjectNumber == "" {
		out.ProjectNumber = full.ProjectNumber
	}
	if out.ClientName == "" {
		out.ClientName = full.ClientName
	}
	if out.Architect == "" {
		out.Architect = full.Architect
	}
	if out.StructuralEngineer == "" {
		out.StructuralEngineer = full.StructuralEngineer
	}
	if out.Location == nil {
		out.Location = full.Location
	}
	if out.IssueDate == nil {
		out.IssueDate = full.IssueDate
	}
	if out.Stage == "" {
		out.Stage = full.Stage
	}
	if out.BuildingType == "" {
		out.BuildingType = full.BuildingType
	}
	if out.GrossInternalAreaM2 == 0 {
		out.GrossInternalAreaM2 = full.GrossInternalAreaM2
	}
	if out.Storeys == 0 {
		out.Storeys = full.Storeys
	}

	raw := map[string]string{}
	for k, v := range full.RawExtractedFields {
		raw[k] = v
	}
	for k, v := range priority.RawExtractedFields {
		raw[k] = v
	}
	out.RawExtractedFields = raw
	return out
}
