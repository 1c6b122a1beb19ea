// Package services houses cross-cutting helpers shared by resound components:
// the sentinel error taxonomy used to classify failures at the scheduler
// boundary, and context annotation helpers that let structured logging tag
// lines with file, batch, and correlation identifiers.
package services
