package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexID — идентификатор, который бэкенд отдает то числом, то строкой
// (алерты в БД нумеруются int, в контрактах фигурируют строки).
// Внутри движка всегда строка: корреляция тикет-алерт — точное
// строковое сравнение.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }
