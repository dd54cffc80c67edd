package classify

// classificationPrompt is the fixed instruction set sent with every drawing
// image. The label list must stay in sync with constants.DrawingType.
const classificationPrompt = `You are an expert architectural drawing analyst. Analyze this drawing image and provide a detailed classification.

Identify the following:

1. **Drawing Type** - Classify as one of:
   - floor_plan: Shows layout of rooms, walls, doors, windows from above
   - site_plan: Shows building footprint on land, boundaries, access
   - elevation: Shows vertical face of building exterior
   - section: Shows cut-through view of building
   - detail: Shows enlarged view of specific construction element
   - schedule: Table/list of items (doors, windows, finishes)
   - specification: Written specifications or notes
   - roof_plan: Shows roof layout from above
   - reflected_ceiling: Shows ceiling layout looking up
   - structural: Shows structural elements (beams, columns, foundations)
   - mechanical: Shows HVAC systems
   - electrical: Shows electrical systems
   - plumbing: Shows plumbing systems
   - landscape: Shows external landscaping
   - demolition: Shows elements to be removed
   - cover_sheet: Title page or project information
   - legend: Key/legend for symbols
   - unknown: Cannot determine

2. **Drawing Number** - Extract any drawing reference number visible

3. **Drawing Title** - Extract the title if visible

4. **Revision** - Extract revision letter/number if visible

5. **Scale** - Extract scale notation (e.g., "1:100", "1:50")

6. **Dimensions Present** - Are dimension annotations visible? (true/false)

7. **Annotations Present** - Are text annotations/notes visible? (true/false)

8. **Confidence** - How confident are you in this classification? (0.0 to 1.0)

9. **Measurement Potential** - What quantities could be measured from this drawing?
   Examples: "floor areas", "wall lengths", "door counts", "window sizes"

10. **Notes** - Any relevant observations about the drawing quality or content

Respond in JSON format:
` + "```json" + `
{
  "drawing_type": "floor_plan",
  "drawing_number": "A-101",
  "drawing_title": "Ground Floor Plan",
  "revision": "C",
  "scale": "1:100",
  "dimensions_present": true,
  "annotations_present": true,
  "confidence": 0.95,
  "measurement_potential": ["floor areas", "room dimensions", "door positions", "wall lengths"],
  "notes": ["Clear dimension strings", "North arrow present", "Good print quality"]
}
` + "```"
