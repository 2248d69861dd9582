// Package newsgrab discovers articles on news websites, extracts them into
// an ordered, addressable content map and submits them to an article store
// while rehosting their images.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, gin/).
package newsgrab
