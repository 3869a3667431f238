package validate

import (
	"strconv"
	"strings"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string {
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func MinInt(field string, v, min int64) *ErrField {
	if v < min {
		return &ErrField{Field: field, Msg: "must be >= " + strconv.FormatInt(min, 10)}
	}
	return nil
}

// Positive rejects zero and negative monetary amounts.
func Positive(field string, v int64) *ErrField {
	if v <= 0 {
		return &ErrField{Field: field, Msg: "must be > 0"}
	}
	return nil
}

// Digits checks an account-number-like field: exact length, numeric only.
func Digits(field, value string, length int) *ErrField {
	if len(value) != length {
		return &ErrField{Field: field, Msg: "must be " + strconv.Itoa(length) + " digits"}
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			return &ErrField{Field: field, Msg: "must be numeric"}
		}
	}
	return nil
}

func Collect(errs ...*ErrField) error {
	var out Errs
	for _, e := range errs {
		if e != nil {
			out = append(out, *e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
