package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MovieRecord is one validated row of the movie dataset. Records are never mutated.
type MovieRecord struct {
	Title       string  `json:"title"`
	Director    string  `json:"director"`
	LeadActor   string  `json:"leadActor"`
	Rating      float64 `json:"rating"`
	ReleaseYear int     `json:"releaseYear"`
	Gross       float64 `json:"gross"`
	PosterURL   string  `json:"posterUrl"`
}

// Kind selects the movie field a question asks about.
type Kind string

const (
	KindDirector Kind = "director"
	KindActor    Kind = "actor"
	KindRating   Kind = "rating"
	KindYear     Kind = "year"
	KindGross    Kind = "gross"
)

// Kinds lists every question template in a stable order.
var Kinds = []Kind{KindDirector, KindActor, KindRating, KindYear, KindGross}

// Valid reports whether k is one of the known question kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindDirector, KindActor, KindRating, KindYear, KindGross:
		return true
	}
	return false
}

// ValueOf returns the field of m the kind asks about.
func (k Kind) ValueOf(m MovieRecord) Value {
	switch k {
	case KindDirector:
		return Text(m.Director)
	case KindActor:
		return Text(m.LeadActor)
	case KindRating:
		return Number(m.Rating)
	case KindYear:
		return Number(float64(m.ReleaseYear))
	case KindGross:
		return Number(m.Gross)
	}
	return Value{}
}

// Value is an answer value. It is comparable; two values are equal only when
// their stored text or number is identical.
type Value struct {
	Text    string  `json:"text,omitempty"`
	Number  float64 `json:"number,omitempty"`
	Numeric bool    `json:"numeric,omitempty"`
}

// Text builds a string answer value.
func Text(s string) Value { return Value{Text: s} }

// Number builds a numeric answer value.
func Number(n float64) Value { return Value{Number: n, Numeric: true} }

// IsZero reports whether v is the empty selection.
func (v Value) IsZero() bool { return v == Value{} }

// String renders the stored value without any display rounding.
func (v Value) String() string {
	if v.Numeric {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// Label renders v for display in a question of the given kind.
func (v Value) Label(kind Kind) string {
	if !v.Numeric {
		return v.Text
	}
	switch kind {
	case KindYear:
		return strconv.Itoa(int(v.Number))
	case KindRating:
		return strconv.FormatFloat(v.Number, 'f', 1, 64)
	case KindGross:
		return "$" + groupThousands(strconv.FormatFloat(v.Number, 'f', 0, 64))
	}
	return v.String()
}

func groupThousands(digits string) string {
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}

// ParseGross parses box office figures such as "28,341,469".
func ParseGross(raw string) (float64, error) {
	cleaned := strings.NewReplacer(",", "", "$", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, fmt.Errorf("empty gross value")
	}
	return strconv.ParseFloat(cleaned, 64)
}
