// Package badge renders balances as shields.io badges.
package badge

import (
	"math/big"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/example/chainbadge/internal/source"
)

const (
	ShieldsBaseURL = "https://img.shields.io/badge"

	DefaultColor = "blue"
	WarningColor = "yellow"
	ErrorColor   = "red"
)

type Badge struct {
	Label      string
	Message    string
	Suffix     string
	Color      string
	LabelColor string
	Logo       string
	IsError    bool
}

// FromResponse builds the default badge for a fetched balance.
func FromResponse(r *source.Response) Badge {
	return Badge{
		Label:   r.Metadata.Label(),
		Message: r.Formatted().Tiny,
		Suffix:  r.Metadata.Symbol(),
		Logo:    r.Metadata.Icon(),
	}
}

// Failed is the badge shown when a query cannot be answered.
func Failed() Badge {
	return Badge{Label: "Badge", Message: "Failed", Color: ErrorColor, IsError: true}
}

func (b Badge) text() string {
	if b.Suffix == "" {
		return b.Message
	}
	return b.Message + " " + b.Suffix
}

func (b Badge) color() string {
	if b.Color == "" {
		return DefaultColor
	}
	return b.Color
}

// ShieldsURL returns the static shields.io image URL for b.
func ShieldsURL(b Badge) string {
	var sb strings.Builder
	sb.WriteString(ShieldsBaseURL)
	sb.WriteByte('/')
	if b.Label != "" {
		sb.WriteString(escape(b.Label))
		sb.WriteByte('-')
	}
	sb.WriteString(escape(b.text()))
	sb.WriteByte('-')
	sb.WriteString(escape(b.color()))

	params := url.Values{}
	if b.LabelColor != "" {
		params.Set("labelColor", b.LabelColor)
	}
	if b.Logo != "" {
		params.Set("logo", b.Logo)
	}
	if len(params) > 0 {
		sb.WriteByte('?')
		sb.WriteString(params.Encode())
	}
	return sb.String()
}

// shields treats "-" and "_" as separators; doubling them yields the literal.
func escape(s string) string {
	s = strings.ReplaceAll(s, "-", "--")
	s = strings.ReplaceAll(s, "_", "__")
	return url.PathEscape(s)
}

// EndpointData is the shields.io endpoint badge schema.
type EndpointData struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color,omitempty"`
	LabelColor    string `json:"labelColor,omitempty"`
	IsError       bool   `json:"isError"`
	NamedLogo     string `json:"namedLogo,omitempty"`
}

func Endpoint(b Badge) EndpointData {
	return EndpointData{
		SchemaVersion: 1,
		Label:         b.Label,
		Message:       b.text(),
		Color:         b.color(),
		LabelColor:    b.LabelColor,
		IsError:       b.IsError,
		NamedLogo:     b.Logo,
	}
}

// Options are the caller's overrides from the query string.
type Options struct {
	Color            string `validate:"omitempty,max=32,printascii"`
	Label            string `validate:"omitempty,max=128"`
	Logo             string `validate:"omitempty,max=64,printascii"`
	LabelColor       string `validate:"omitempty,max=32,printascii"`
	WarningThreshold string `validate:"omitempty,number,max=78"`
}

var ErrInvalidOptions = errors.New("badge: invalid options")

var validate = validator.New()

// ParseOptions reads color, label, logo, label_color and warning_threshold.
func ParseOptions(v url.Values) (Options, error) {
	o := Options{
		Color:            v.Get("color"),
		Label:            v.Get("label"),
		Logo:             v.Get("logo"),
		LabelColor:       v.Get("label_color"),
		WarningThreshold: v.Get("warning_threshold"),
	}
	if err := validate.Struct(o); err != nil {
		return Options{}, errors.Wrap(ErrInvalidOptions, err.Error())
	}
	return o, nil
}

// Apply builds the badge for r with o applied. Without an explicit color a
// balance at or below the warning threshold (default 0) turns yellow.
func Apply(r *source.Response, o Options) Badge {
	b := FromResponse(r)
	switch {
	case o.Color != "":
		b.Color = o.Color
	case belowThreshold(r, o.WarningThreshold):
		b.Color = WarningColor
	}
	if o.Label != "" {
		b.Label = o.Label
	}
	if o.Logo != "" {
		b.Logo = o.Logo
	}
	if o.LabelColor != "" {
		b.LabelColor = o.LabelColor
	}
	return b
}

func belowThreshold(r *source.Response, threshold string) bool {
	t := new(big.Int)
	if threshold != "" {
		if _, ok := t.SetString(threshold, 10); !ok {
			return false
		}
	}
	v := r.Amount.Value
	if v == nil {
		v = new(big.Int)
	}
	return v.Cmp(t) <= 0
}
