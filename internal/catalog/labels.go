package catalog

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

type LabelRow struct {
	Title    string
	ItemName string
	ItemID   string
	Damaged  bool
}

// WriteLabelsCSV writes rows as Shift_JIS (Windows "ANSI") CSV, the format
// label printer drivers import. Characters outside Shift_JIS are written as
// the ASCII SUB byte.
func WriteLabelsCSV(w io.Writer, rows []LabelRow) error {
	enc := encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder())
	tw := transform.NewWriter(w, enc)
	cw := csv.NewWriter(tw)
	cw.UseCRLF = true

	for _, r := range rows {
		damaged := "0"
		if r.Damaged {
			damaged = "1"
		}
		if err := cw.Write([]string{r.Title, r.ItemName, r.ItemID, damaged}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return tw.Close()
}
