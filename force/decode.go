package force

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// OutboundDateLayout is the layout used for dates in request bodies. It is
// also the first entry of DefaultDateLayouts.
const OutboundDateLayout = "2006-01-02T15:04:05.000Z0700"

// DefaultDateLayouts is the fallback chain used when decoding date fields.
var DefaultDateLayouts = []string{
	OutboundDateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	numberType = reflect.TypeOf(json.Number(""))
)

// FormatDate renders t in OutboundDateLayout, in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(OutboundDateLayout)
}

// Decoder turns JSON bytes into typed values. time.Time fields are parsed by
// trying each layout in order; the first one that parses wins.
type Decoder struct {
	layouts []string
}

// NewDecoder creates a decoder with the given layouts, or
// DefaultDateLayouts when none are given.
func NewDecoder(layouts ...string) *Decoder {
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	return &Decoder{layouts: slices.Clone(layouts)}
}

// Layouts returns the decoder's date layouts in the order they are tried.
func (d *Decoder) Layouts() []string {
	return slices.Clone(d.layouts)
}

// Decode decodes data into out, which must be a non-nil pointer.
func (d *Decoder) Decode(data []byte, out any) error {
	if out == nil {
		return decodingFailed("nil target", nil)
	}
	if rv := reflect.ValueOf(out); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return decodingFailed(fmt.Sprintf("target must be a non-nil pointer, got %T", out), nil)
	}

	// Numbers stay json.Number so integer fields never see a truncated float.
	jd := json.NewDecoder(bytes.NewReader(data))
	jd.UseNumber()
	var raw any
	if err := jd.Decode(&raw); err != nil {
		return decodingFailed("invalid JSON", err)
	}
	if _, err := jd.Token(); !errors.Is(err, io.EOF) {
		return decodingFailed("invalid JSON: trailing data after value", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.DecodeHookFuncType(d.dateHook),
			mapstructure.DecodeHookFuncType(numberHook),
		),
		Result:  out,
		TagName: "json",
	})
	if err != nil {
		return decodingFailed("decoder setup", err)
	}
	if err := dec.Decode(raw); err != nil {
		return decodingFailed(fmt.Sprintf("cannot decode into %T", out), err)
	}
	return nil
}

// DecodeFile reads a JSON file and decodes it into out.
func (d *Decoder) DecodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return decodingFailed("read "+path, err)
	}
	return d.Decode(data, out)
}

// ParseDate parses s with the decoder's layouts.
func (d *Decoder) ParseDate(s string) (time.Time, error) {
	for _, layout := range d.layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot decode date string %q", s)
}

func (d *Decoder) dateHook(from, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if to != timeType || !ok {
		return data, nil
	}
	return d.ParseDate(s)
}

// numberHook rejects JSON numbers that the target field cannot hold exactly.
func numberHook(from, to reflect.Type, data any) (any, error) {
	n, ok := data.(json.Number)
	if !ok || to == numberType {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s is not a valid %s", n, to)
		}
		if reflect.New(to).Elem().OverflowInt(i) {
			return nil, fmt.Errorf("%s overflows %s", n, to)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s is not a valid %s", n, to)
		}
		if reflect.New(to).Elem().OverflowUint(u) {
			return nil, fmt.Errorf("%s overflows %s", n, to)
		}
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil || reflect.New(to).Elem().OverflowFloat(f) {
			return nil, fmt.Errorf("%s overflows %s", n, to)
		}
	case reflect.String:
		return nil, fmt.Errorf("expected a string, got number %s", n)
	}
	return data, nil
}
