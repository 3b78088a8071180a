// Package stencil turns Microsoft Word documents (DOCX) into templates with
// typed variables and generates filled copies of them.
//
// Unlike placeholder-syntax engines, stencil does not look for markers the
// author typed into the document. The author picks ranges of the document's
// plain text (for example the words "NAMA PEGAWAI" in a letter) and declares
// each one a variable. Stencil tags the runs under that range in the
// document XML, so the original formatting of the range survives generation.
//
// # Quick Start
//
//	pkg, err := stencil.LoadPackageFile("surat.docx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tmpl, err := stencil.NewDraft(pkg, "Surat Keterangan Hadir", "kepegawaian")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rng, _ := tmpl.Document().FindText("NAMA PEGAWAI", 0)
//	_, err = tmpl.CreateVariable(tmpl.Revision(), stencil.VariableDef{
//	    Name:     "nama_pegawai",
//	    Type:     stencil.TypeText,
//	    Required: true,
//	    Range:    rng,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tmpl.Finalize(); err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := stencil.Generate(ctx, tmpl, map[string]any{
//	    "nama_pegawai": "Budi Santoso",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("surat-budi.docx", result.Output, 0644)
//
// # Ranges and Offsets
//
// A Range is a half-open interval of rune offsets into the document text as
// returned by (*xml.Document).Text: the text of every body paragraph joined
// by a single newline. A range must lie inside one paragraph and must not
// cross a non-text element such as a field character or a drawing. Ranges of
// different variables never overlap.
//
// # Template Lifecycle
//
// A template starts as a draft. Every mutation (CreateVariable,
// UpdateVariable, DeleteVariable) carries the revision the caller last saw
// and fails with ErrStaleTemplateVersion when another mutation got there
// first. Finalize checks that every variable still matches the document and
// freezes the template. Use NewVersion to derive an editable draft from a
// finalized template.
//
// # Variable Types
//
//   - text: length limits, a pattern, case folding, optional markup stripping
//   - number: bounds, integer-only, decimals; formatted for the locale
//   - date: a pattern such as "DD MMMM YYYY" formatted for the locale
//   - enum: a fixed list of values with optional display labels
//
// Dates and numbers default to the "id" locale. Set Config.DefaultLocale,
// the per-call WithLocale option or a locale in the constraints to change
// that.
//
// # Generation
//
// Generate binds every variable at once. Missing required variables and
// values that break their constraints are reported together in one error;
// use Issues to list them. Optional variables without a binding take their
// default or become empty, and bindings that name no variable are ignored.
// Both cases are returned as warnings.
//
// # Persistence
//
// Record and Restore convert a template to and from a storable form. The
// Engine ties a Store, a cache of finalized templates and the configuration
// together; see the store sub-package for the SQLite implementation.
//
// # Error Handling
//
// Every error matches one of the Err* kinds through errors.Is. Validation
// failures are *ValidationError values listing each field with a problem:
//
//	_, err := stencil.Generate(ctx, tmpl, bindings)
//	for _, issue := range stencil.Issues(err) {
//	    fmt.Printf("%s: %s\n", issue.Field, issue.Message)
//	}
//
// # Thread Safety
//
// Finalized templates are read-only and may be shared by any number of
// goroutines; Generate never modifies its template. Draft mutations are
// serialized per template. The Engine and its cache are safe for
// concurrent use.
//
// # Sub-packages
//
//   - xml: the lossless paragraph and run model of word/document.xml
//   - render: range registration, run splitting and value filling
//   - store: SQLite persistence of templates
//   - stenciltest: DOCX fixtures for tests
package stencil
