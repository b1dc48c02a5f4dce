package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Number is a float64 that also decodes from a numeric JSON string. Form
// values posted by the browser, and data files written from them, carry
// weights as "90.0" as often as 90.
type Number float64

// UnmarshalJSON implements json.Unmarshaler. A JSON null leaves n unchanged.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	*n = Number(f)
	return nil
}
