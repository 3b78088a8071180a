package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/stenciltest"
)

// setupTestDB creates a SQLite database file and a Store for testing.
func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}
	s, err := New(db)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return db, s
}

// newLetter returns a draft of the letter with one variable.
func newLetter(t *testing.T, name string) *stencil.Template {
	t.Helper()
	pkg, err := stencil.LoadPackageBytes(stenciltest.Letter())
	if err != nil {
		t.Fatal(err)
	}
	tmpl, err := stencil.NewDraft(pkg, name, "kepegawaian")
	if err != nil {
		t.Fatal(err)
	}
	rng, ok := tmpl.Document().FindText("NAMA PEGAWAI", 0)
	if !ok {
		t.Fatal("placeholder not found")
	}
	if _, err := tmpl.CreateVariable(tmpl.Revision(), stencil.VariableDef{
		Name:     "nama_pegawai",
		Type:     stencil.TypeText,
		Required: true,
		Range:    rng,
	}); err != nil {
		t.Fatal(err)
	}
	return tmpl
}

func TestSetupSchemaIdempotent(t *testing.T) {
	db, _ := setupTestDB(t)
	if err := SetupSchema(db); err != nil {
		t.Errorf("second SetupSchema() error = %v", err)
	}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	_, s := setupTestDB(t)
	tmpl := newLetter(t, "Surat Keterangan Hadir")

	rec, err := tmpl.Record()
	if err != nil {
		t.Fatal(err)
	}
	pkg := tmpl.Package().Bytes()
	if err := s.Put(ctx, rec, pkg); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	gotRec, gotPkg, err := s.Get(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(pkg, gotPkg) {
		t.Error("stored package differs")
	}
	if diff := cmp.Diff(rec.Variables[0].Range, gotRec.Variables[0].Range); diff != "" {
		t.Errorf("range mismatch (-want +got):\n%s", diff)
	}
	if gotRec.ID != rec.ID || gotRec.Name != rec.Name || gotRec.State != stencil.StateDraft {
		t.Errorf("Get() record = %+v", gotRec)
	}

	restored, err := stencil.Restore(gotRec, mustPackage(t, gotPkg))
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if diff := cmp.Diff(tmpl.Variables(), restored.Variables()); diff != "" {
		t.Errorf("restored variables mismatch (-want +got):\n%s", diff)
	}
}

func mustPackage(t *testing.T, data []byte) *stencil.Package {
	t.Helper()
	pkg, err := stencil.LoadPackageBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	return pkg
}

func TestPutFinalizedIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	_, s := setupTestDB(t)
	tmpl := newLetter(t, "Surat Tugas")
	var stored uint64
	put := func() error {
		rec, err := tmpl.Record()
		if err != nil {
			t.Fatal(err)
		}
		rec.BaseRevision = stored
		if err := s.Put(ctx, rec, tmpl.Package().Bytes()); err != nil {
			return err
		}
		stored = rec.Revision
		return nil
	}

	if err := put(); err != nil {
		t.Fatalf("Put(draft) error = %v", err)
	}
	if err := put(); err != nil {
		t.Fatalf("Put(draft again) error = %v", err)
	}
	if err := tmpl.Finalize(); err != nil {
		t.Fatal(err)
	}
	if err := put(); err != nil {
		t.Fatalf("Put(finalized) error = %v", err)
	}
	if err := put(); !errors.Is(err, stencil.ErrTemplateFinalized) {
		t.Errorf("Put(finalized again) error = %v, want ErrTemplateFinalized", err)
	}
}

func TestPutStaleDraft(t *testing.T) {
	ctx := context.Background()
	_, s := setupTestDB(t)
	tmpl := newLetter(t, "Surat Tugas")

	rec, err := tmpl.Record()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, rec, tmpl.Package().Bytes()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Two editors open the stored draft at the same revision.
	stored, pkg, err := s.Get(ctx, tmpl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Revision != rec.Revision {
		t.Fatalf("stored revision = %d, want %d", stored.Revision, rec.Revision)
	}
	first, err := stencil.Restore(stored, mustPackage(t, pkg))
	if err != nil {
		t.Fatal(err)
	}
	second, err := stencil.Restore(stored, mustPackage(t, pkg))
	if err != nil {
		t.Fatal(err)
	}
	for _, edit := range []struct {
		tmpl *stencil.Template
		name string
	}{{first, "tanggal"}, {second, "catatan"}} {
		rng, ok := edit.tmpl.Document().FindText("TANGGAL", 0)
		if !ok {
			t.Fatal("placeholder not found")
		}
		if _, err := edit.tmpl.CreateVariable(edit.tmpl.Revision(), stencil.VariableDef{Name: edit.name, Type: stencil.TypeText, Range: rng}); err != nil {
			t.Fatal(err)
		}
	}

	firstRec, err := first.Record()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, firstRec, first.Package().Bytes()); err != nil {
		t.Fatalf("Put(first) error = %v", err)
	}
	secondRec, err := second.Record()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, secondRec, second.Package().Bytes()); !errors.Is(err, stencil.ErrStaleTemplateVersion) {
		t.Fatalf("Put(second) error = %v, want ErrStaleTemplateVersion", err)
	}

	got, _, err := s.Get(ctx, tmpl.ID)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, v := range got.Variables {
		names = append(names, v.Name)
	}
	if diff := cmp.Diff([]string{"nama_pegawai", "tanggal"}, names); diff != "" {
		t.Errorf("stored variables mismatch (-want +got):\n%s", diff)
	}
	if got.Revision != firstRec.Revision {
		t.Errorf("stored revision = %d, want %d", got.Revision, firstRec.Revision)
	}
}

func TestPutChecksumMismatch(t *testing.T) {
	_, s := setupTestDB(t)
	tmpl := newLetter(t, "Surat Tugas")
	rec, err := tmpl.Record()
	if err != nil {
		t.Fatal(err)
	}
	err = s.Put(context.Background(), rec, []byte("other bytes"))
	if !errors.Is(err, stencil.ErrCorruptPackage) {
		t.Errorf("Put() error = %v, want ErrCorruptPackage", err)
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	db, s := setupTestDB(t)

	first := newLetter(t, "Surat Tugas")
	if err := first.Finalize(); err != nil {
		t.Fatal(err)
	}
	second, err := first.NewVersion()
	if err != nil {
		t.Fatal(err)
	}
	other := newLetter(t, "Berita Acara")
	for _, tmpl := range []*stencil.Template{second, first, other} {
		rec, err := tmpl.Record()
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Put(ctx, rec, tmpl.Package().Bytes()); err != nil {
			t.Fatalf("Put(%s) error = %v", tmpl.ID, err)
		}
	}

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var got []string
	for _, rec := range recs {
		got = append(got, fmt.Sprintf("%s v%d", rec.Name, rec.Version))
	}
	want := []string{"Berita Acara v1", "Surat Tugas v1", "Surat Tugas v2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	// All three share one package blob.
	if n := countPackages(t, db); n != 1 {
		t.Errorf("stored %d packages, want 1", n)
	}

	for _, tmpl := range []*stencil.Template{first, second} {
		if err := s.Delete(ctx, tmpl.ID); err != nil {
			t.Fatalf("Delete(%s) error = %v", tmpl.ID, err)
		}
	}
	if n := countPackages(t, db); n != 1 {
		t.Errorf("package pruned while still in use: %d left", n)
	}
	if err := s.Delete(ctx, other.ID); err != nil {
		t.Fatal(err)
	}
	if n := countPackages(t, db); n != 0 {
		t.Errorf("%d packages left after deleting every template", n)
	}

	if err := s.Delete(ctx, first.ID); !errors.Is(err, stencil.ErrTemplateNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrTemplateNotFound", err)
	}
	if _, _, err := s.Get(ctx, first.ID); !errors.Is(err, stencil.ErrTemplateNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrTemplateNotFound", err)
	}
}

func countPackages(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM stencil_packages`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestEngineWithStore(t *testing.T) {
	ctx := context.Background()
	_, s := setupTestDB(t)
	e := stencil.New(s)

	tmpl, err := e.Draft(ctx, bytes.NewReader(stenciltest.Letter()), "Surat Keterangan Hadir", "kepegawaian")
	if err != nil {
		t.Fatal(err)
	}
	for _, def := range []struct{ name, text string }{{"nama_pegawai", "NAMA PEGAWAI"}, {"tanggal", "TANGGAL"}} {
		rng, _ := tmpl.Document().FindText(def.text, 0)
		typ := stencil.TypeText
		if def.name == "tanggal" {
			typ = stencil.TypeDate
		}
		if _, err := tmpl.CreateVariable(tmpl.Revision(), stencil.VariableDef{Name: def.name, Type: typ, Required: true, Range: rng}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tmpl.Finalize(); err != nil {
		t.Fatal(err)
	}
	if err := e.Save(ctx, tmpl); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	e.ClearCache()

	result, err := e.Generate(ctx, stencil.GenerationRequest{
		TemplateID: tmpl.ID,
		Bindings:   map[string]any{"nama_pegawai": "Budi Santoso", "tanggal": "2024-03-01"},
		Locale:     "id",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text := stenciltest.Text(t, result.Output); !strings.Contains(text, "Budi Santoso telah hadir pada tanggal 01 Maret 2024") {
		t.Errorf("generated text = %q", text)
	}
}
