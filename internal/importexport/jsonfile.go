package importexport

import (
	"encoding/json"
	"io"

	"gridcore/pkg/apperrors"
	"gridcore/pkg/grid"
)

// ImportJSON reads the native versioned file envelope (§6 "File format")
// produced by ExportJSON, relying on Grid's own MarshalJSON/UnmarshalJSON
// for the envelope and sheet DTO shapes.
func ImportJSON(r io.Reader) (*grid.Grid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.ImportFailed(err)
	}
	g := grid.NewEmptyGrid()
	if err := json.Unmarshal(data, g); err != nil {
		return nil, apperrors.InvalidJSON(err)
	}
	return g, nil
}

// ExportJSON writes g as the native file envelope. Byte-equivalence of a
// subsequent ImportJSON round trip (modulo whitespace/map ordering) is the
// §6 requirement this adapter exists to satisfy.
func ExportJSON(g *grid.Grid, w io.Writer) error {
	data, err := json.Marshal(g)
	if err != nil {
		return apperrors.ExportFailed(err)
	}
	_, err = w.Write(data)
	if err != nil {
		return apperrors.ExportFailed(err)
	}
	return nil
}
