// Package render holds the run-level operations behind marking and filling
// a document.
//
// The functions here work on xml.Document values and never modify their
// input: each one clones the paragraphs it touches and returns a new
// document sharing the rest.
//
//   - mapper.go: RegisterRange and UnregisterRange, which split runs at range
//     boundaries and tag the covered runs with a marker
//   - helpers.go: seam healing after a marker is removed, and pruning of runs
//     emptied by substitution
//   - fill.go: Fill, which writes bound values into marked runs
//
// Example:
//
//	rng, _ := doc.FindText("Budi Santoso", 0)
//	marked, marker, err := render.RegisterRange(doc, rng, "nama-pegawai")
//	if err != nil {
//	    return err
//	}
//	out, err := render.Fill(ctx, marked, map[string]string{marker: "Siti Aminah"})
//
// The package imports xml but not stencil, so stencil can depend on it.
package render
