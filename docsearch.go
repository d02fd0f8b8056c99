// Package docsearch ingests documentation websites and serves hybrid
// retrieval over them. It crawls a site, extracts the readable article of
// each page as markdown, splits it into heading-labeled chunks, embeds the
// chunks and stores everything for vector search with a full-text fallback.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., postgres/, redis/, rod/).
package docsearch
