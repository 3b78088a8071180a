package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-letterstencil/internal/output"
	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
)

// paragraphInfo is one paragraph of an inspected document.
type paragraphInfo struct {
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// matchInfo is one occurrence of the text given with --find.
type matchInfo struct {
	Occurrence int `json:"occurrence"`
	Start      int `json:"start"`
	End        int `json:"end"`
}

type inspectResult struct {
	File       string          `json:"file"`
	Checksum   string          `json:"checksum"`
	Size       int             `json:"size"`
	MainPart   string          `json:"main_part"`
	Paragraphs []paragraphInfo `json:"paragraphs"`
	Find       string          `json:"find,omitempty"`
	Matches    []matchInfo     `json:"matches,omitempty"`
}

// newInspectCmd creates the inspect command.
func newInspectCmd() *cobra.Command {
	var findFlag string

	cmd := &cobra.Command{
		Use:   "inspect <file.docx>",
		Short: "Show a document's paragraphs and character offsets",
		Long: `Show the paragraphs of a .docx with the character offsets variable ranges use.

Offsets count characters across the whole document; paragraphs are joined by
one newline. Use --find to list every occurrence of a piece of text.

Examples:
  stencil inspect surat.docx
  stencil inspect surat.docx --find "NAMA PEGAWAI"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], findFlag)
		},
	}

	cmd.Flags().StringVar(&findFlag, "find", "", "List the ranges of every occurrence of this text")

	return cmd
}

func runInspect(cmd *cobra.Command, path, find string) error {
	printer := newPrinter(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		printer.Error(err)
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		err = output.NewUserError(err.Error())
		printer.Error(err)
		return err
	}
	defer func() { _ = f.Close() }()

	pkg, err := stencil.New(nil, stencil.WithConfig(cfg)).Load(cmd.Context(), f)
	if err != nil {
		printer.Error(err)
		return err
	}
	doc, err := pkg.Document()
	if err != nil {
		printer.Error(err)
		return err
	}

	result := inspectResult{
		File:     path,
		Checksum: pkg.Checksum(),
		Size:     pkg.Size(),
		MainPart: pkg.MainPart(),
		Find:     find,
	}
	idx := doc.Index()
	for i, p := range doc.Paragraphs {
		start := idx.ParagraphStart(i)
		result.Paragraphs = append(result.Paragraphs, paragraphInfo{
			Index: i,
			Start: start,
			End:   start + p.Len(),
			Text:  p.Text(),
		})
	}
	if find != "" {
		for n := 0; ; n++ {
			rng, ok := doc.FindText(find, n)
			if !ok {
				break
			}
			result.Matches = append(result.Matches, matchInfo{Occurrence: n, Start: rng.Start, End: rng.End})
		}
	}

	if printer.IsJSON() {
		return printer.WriteJSON(result)
	}
	outputInspectHuman(printer, result)
	return nil
}

func outputInspectHuman(printer *output.Printer, result inspectResult) {
	printer.KeyValue("File", result.File)
	printer.KeyValue("Main part", result.MainPart)
	printer.KeyValue("Checksum", result.Checksum)

	printer.Section("Paragraphs")
	rows := make([][]string, 0, len(result.Paragraphs))
	for _, p := range result.Paragraphs {
		rows = append(rows, []string{strconv.Itoa(p.Index), strconv.Itoa(p.Start), strconv.Itoa(p.End), p.Text})
	}
	printer.Table([]string{"#", "START", "END", "TEXT"}, rows)

	if result.Find == "" {
		return
	}
	printer.Section("Matches for " + strconv.Quote(result.Find))
	if len(result.Matches) == 0 {
		printer.Println("no occurrences")
		return
	}
	rows = rows[:0]
	for _, m := range result.Matches {
		rows = append(rows, []string{strconv.Itoa(m.Occurrence), strconv.Itoa(m.Start), strconv.Itoa(m.End)})
	}
	printer.Table([]string{"OCCURRENCE", "START", "END"}, rows)
}
