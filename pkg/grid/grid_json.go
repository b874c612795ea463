package grid

import "encoding/json"

// fileFormatVersion is bumped whenever the envelope or any sheet DTO's shape
// changes incompatibly (§6 "File format").
const fileFormatVersion = 1

// gridDTO is the top-level file-format envelope: {version, sheets:[...]}.
type gridDTO struct {
	Version int      `json:"version"`
	Sheets  []*Sheet `json:"sheets"`
}

func (g *Grid) MarshalJSON() ([]byte, error) {
	dto := gridDTO{Version: fileFormatVersion, Sheets: g.SheetsOrdered()}
	return json.Marshal(dto)
}

func (g *Grid) UnmarshalJSON(data []byte) error {
	var dto gridDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	g.sheets = make(map[SheetID]*Sheet, len(dto.Sheets))
	for _, s := range dto.Sheets {
		g.sheets[s.ID] = s
	}
	return nil
}
