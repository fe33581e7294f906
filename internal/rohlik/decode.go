package rohlik

import (
	"encoding/json"
	"strconv"
)

// Loose wire types. The upstream swaps field representations between
// releases (numeric ids become strings, prices become amount objects), so
// decoding defaults instead of erroring.

type looseString string

func (v *looseString) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*v = looseString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		*v = looseString(n.String())
		return nil
	}
	*v = ""
	return nil
}

type looseFloat float64

func (v *looseFloat) UnmarshalJSON(raw []byte) error {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		*v = looseFloat(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*v = looseFloat(f)
		} else {
			*v = 0
		}
		return nil
	}
	var amount struct {
		Amount float64 `json:"amount"`
	}
	if err := json.Unmarshal(raw, &amount); err == nil {
		*v = looseFloat(amount.Amount)
		return nil
	}
	*v = 0
	return nil
}

type looseInt int

func (v *looseInt) UnmarshalJSON(raw []byte) error {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		*v = looseInt(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i, err := strconv.Atoi(s); err == nil {
			*v = looseInt(i)
		} else {
			*v = 0
		}
		return nil
	}
	*v = 0
	return nil
}
