// Package export renders a sketch, its detected regions, and a feature
// graph to SVG for visual inspection, and serializes a regeneration's
// topology manifest to JSON for downstream tooling.
package export
