// Package wikifuse extracts structured character records from wiki pages,
// normalizes their fields, scores their quality, and fuses records that
// describe the same entity into a single canonical entity.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, yaml/).
package wikifuse
