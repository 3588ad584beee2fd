package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/innovatis-mc/emendas-cli/internal/model"
)

type jsonSerializer struct{}

type jsonEnvelope struct {
	Metadata Metadata         `json:"metadata"`
	Data     []map[string]any `json:"data"`
}

func (jsonSerializer) Serialize(w io.Writer, rows []model.Opportunity, fields []Field, meta Metadata, cfg Config) error {
	data := make([]map[string]any, len(rows))
	for i, o := range rows {
		rec := make(map[string]any, len(fields))
		for _, f := range fields {
			rec[f.Key] = f.value(o)
		}
		data[i] = rec
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(jsonEnvelope{Metadata: meta, Data: data}); err != nil {
		return eris.Wrap(err, "json: encode")
	}
	return nil
}
